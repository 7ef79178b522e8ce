package chat

import "context"

// ConversationStore persists conversations by ID.
//
// Get returns ErrConversationNotFound when no conversation exists under the
// ID. Put overwrites the whole conversation atomically so readers never see
// a half-committed turn.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Put(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id string) error
}
