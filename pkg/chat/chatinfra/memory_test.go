package chatinfra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/windowx"
	"github.com/Abraxas-365/parley/pkg/chat"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv := chat.NewConversation("c1")
	require.NoError(t, conv.Append(windowx.Message{Role: llm.RoleUser, Content: "hi", ApproxTokens: 1}))
	require.NoError(t, store.Put(ctx, conv))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, conv.Messages, got.Messages)
}

func TestMemoryStoreGetUnknownID(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, chat.IsNotFound(err))
}

func TestMemoryStoreHandsOutCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv := chat.NewConversation("c1")
	require.NoError(t, conv.Append(windowx.Message{Role: llm.RoleUser, Content: "hi", ApproxTokens: 1}))
	require.NoError(t, store.Put(ctx, conv))

	// mutating what Get returned must not leak into the store
	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	got.Messages[0].Content = "tampered"

	fresh, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "hi", fresh.Messages[0].Content)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv := chat.NewConversation("c1")
	require.NoError(t, store.Put(ctx, conv))
	require.NoError(t, store.Delete(ctx, "c1"))

	_, err := store.Get(ctx, "c1")
	assert.True(t, chat.IsNotFound(err))

	err = store.Delete(ctx, "c1")
	assert.True(t, chat.IsNotFound(err))
}
