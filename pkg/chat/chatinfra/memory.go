package chatinfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/parley/pkg/chat"
)

// MemoryStore is an in-process ConversationStore. Suitable for development
// and tests; conversations do not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*chat.Conversation
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[string]*chat.Conversation),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, chat.ErrConversationNotFound().WithDetail("conversation_id", id)
	}
	return conv.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, conv *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs[conv.ID] = conv.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return chat.ErrConversationNotFound().WithDetail("conversation_id", id)
	}
	delete(s.convs, id)
	return nil
}
