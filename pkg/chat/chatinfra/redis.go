package chatinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/parley/pkg/chat"
)

// RedisStore keeps each conversation as one JSON value. A non-zero TTL lets
// idle conversations expire instead of accumulating forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed ConversationStore
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func conversationKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, chat.ErrConversationNotFound().WithDetail("conversation_id", id)
	}
	if err != nil {
		return nil, chat.ErrStoreFailure(err).WithDetail("operation", "get")
	}

	var conv chat.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, chat.ErrStoreFailure(err).WithDetail("operation", "decode")
	}
	return &conv, nil
}

func (s *RedisStore) Put(ctx context.Context, conv *chat.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return chat.ErrStoreFailure(err).WithDetail("operation", "encode")
	}

	if err := s.client.Set(ctx, conversationKey(conv.ID), data, s.ttl).Err(); err != nil {
		return chat.ErrStoreFailure(err).WithDetail("operation", "put")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, conversationKey(id)).Result()
	if err != nil {
		return chat.ErrStoreFailure(err).WithDetail("operation", "delete")
	}
	if deleted == 0 {
		return chat.ErrConversationNotFound().WithDetail("conversation_id", id)
	}
	return nil
}
