package chatsrv

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/tokenx"
	"github.com/Abraxas-365/parley/pkg/ai/llm/windowx"
	"github.com/Abraxas-365/parley/pkg/chat"
	"github.com/Abraxas-365/parley/pkg/chat/chatinfra"
	"github.com/Abraxas-365/parley/pkg/errx"
)

// fakeLLM returns a scripted reply and records the prompt it was given
type fakeLLM struct {
	reply    string
	err      error
	stream   *fakeStream
	lastSent []llm.Message
	calls    int
}

// fakeStream yields scripted accumulated-message chunks, optionally
// breaking partway through
type fakeStream struct {
	chunks []llm.Message
	failAt int // index at which Next fails; -1 never
	idx    int
	closed bool
}

func newFakeStream(contents ...string) *fakeStream {
	s := &fakeStream{failAt: -1}
	for _, c := range contents {
		s.chunks = append(s.chunks, llm.NewAssistantMessage(c))
	}
	return s
}

func (f *fakeStream) Next() (llm.Message, error) {
	if f.failAt >= 0 && f.idx == f.failAt {
		return llm.Message{}, errors.New("stream broken")
	}
	if f.idx >= len(f.chunks) {
		return llm.Message{}, io.EOF
	}
	m := f.chunks[f.idx]
	f.idx++
	return m, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	f.calls++
	f.lastSent = messages
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{
		Message: llm.NewAssistantMessage(f.reply),
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	f.calls++
	f.lastSent = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.stream == nil {
		return nil, errors.New("no stream scripted")
	}
	return f.stream, nil
}

func newTestService(fake *fakeLLM, cfg Config) (*Service, chat.ConversationStore) {
	store := chatinfra.NewMemoryStore()
	if cfg.Model == "" {
		cfg.Model = "test-model"
	}
	if cfg.Budget.MaxTokens == 0 {
		cfg.Budget = windowx.Budget{MaxTokens: 1000, RecentKeep: 2}
	}
	manager := windowx.NewManager(windowx.PolicySlidingWindow)
	svc := NewService(store, llm.NewClient(fake), manager, tokenx.CharCounter{}, cfg)
	return svc, store
}

func TestTurnCreatesConversationAndCommitsBothMessages(t *testing.T) {
	fake := &fakeLLM{reply: "hello there"}
	svc, store := newTestService(fake, Config{SystemPrompt: "You are helpful."})

	resp, err := svc.Turn(context.Background(), chat.TurnRequest{Message: "hi"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "hello there", resp.Reply.Content)
	assert.Equal(t, llm.RoleAssistant, resp.Reply.Role)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	conv, err := store.Get(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, llm.RoleSystem, conv.Messages[0].Role)
	assert.Equal(t, "hi", conv.Messages[1].Content)
	assert.Equal(t, "hello there", conv.Messages[2].Content)
}

func TestTurnContinuesExistingConversation(t *testing.T) {
	fake := &fakeLLM{reply: "reply"}
	svc, store := newTestService(fake, Config{})

	first, err := svc.Turn(context.Background(), chat.TurnRequest{Message: "one"})
	require.NoError(t, err)

	second, err := svc.Turn(context.Background(), chat.TurnRequest{
		ConversationID: first.ConversationID,
		Message:        "two",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	conv, err := store.Get(context.Background(), first.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, "one", conv.Messages[0].Content)
	assert.Equal(t, "two", conv.Messages[2].Content)
}

func TestTurnRejectsEmptyMessage(t *testing.T) {
	fake := &fakeLLM{reply: "reply"}
	svc, _ := newTestService(fake, Config{})

	_, err := svc.Turn(context.Background(), chat.TurnRequest{Message: "   "})
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, chat.CodeInvalidMessage))
	assert.Zero(t, fake.calls)
}

func TestTurnProviderFailureCommitsNothing(t *testing.T) {
	fake := &fakeLLM{err: errors.New("upstream down")}
	svc, store := newTestService(fake, Config{})

	resp, err := svc.Turn(context.Background(), chat.TurnRequest{ConversationID: "c1", Message: "hi"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errx.IsCode(err, chat.CodeProviderUnavailable))

	// the failed turn must not have created or mutated the conversation
	_, err = store.Get(context.Background(), "c1")
	assert.True(t, chat.IsNotFound(err))
}

func TestTurnProviderFailureLeavesHistoryUntouched(t *testing.T) {
	fake := &fakeLLM{reply: "first reply"}
	svc, store := newTestService(fake, Config{})

	first, err := svc.Turn(context.Background(), chat.TurnRequest{Message: "one"})
	require.NoError(t, err)

	fake.err = errors.New("upstream down")
	_, err = svc.Turn(context.Background(), chat.TurnRequest{
		ConversationID: first.ConversationID,
		Message:        "two",
	})
	require.Error(t, err)

	conv, err := store.Get(context.Background(), first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestTurnSendsReducedPrompt(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	store := chatinfra.NewMemoryStore()
	manager := windowx.NewManager(windowx.PolicySlidingWindow)
	svc := NewService(store, llm.NewClient(fake), manager, tokenx.CharCounter{}, Config{
		Model:  "test-model",
		Budget: windowx.Budget{MaxTokens: 10},
	})

	// seed a conversation larger than the budget
	conv := chat.NewConversation("c1")
	for i := 0; i < 20; i++ {
		require.NoError(t, conv.Append(windowx.Message{Role: llm.RoleUser, Content: "turn", ApproxTokens: 5}))
	}
	require.NoError(t, store.Put(context.Background(), conv))

	resp, err := svc.Turn(context.Background(), chat.TurnRequest{ConversationID: "c1", Message: "latest"})
	require.NoError(t, err)

	// prompt was cut down to what fits, stored history was not
	assert.LessOrEqual(t, len(fake.lastSent), 3)
	stored, err := store.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 22)
	assert.Equal(t, resp.ConversationID, "c1")
}

func TestTurnStreamEmitsDeltasAndCommits(t *testing.T) {
	fake := &fakeLLM{stream: newFakeStream("Hel", "Hello", "Hello world")}
	svc, store := newTestService(fake, Config{})

	var deltas []string
	resp, err := svc.TurnStream(context.Background(), chat.TurnRequest{Message: "hi"}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", " world"}, deltas)
	assert.Equal(t, "Hello world", resp.Reply.Content)
	assert.True(t, fake.stream.closed)

	conv, err := store.Get(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello world", conv.Messages[1].Content)
}

func TestTurnStreamBrokenStreamCommitsNothing(t *testing.T) {
	stream := newFakeStream("Hel", "Hello", "Hello world")
	stream.failAt = 1
	fake := &fakeLLM{stream: stream}
	svc, store := newTestService(fake, Config{})

	var deltas []string
	_, err := svc.TurnStream(context.Background(), chat.TurnRequest{ConversationID: "c1", Message: "hi"}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, chat.CodeProviderUnavailable))
	assert.Equal(t, []string{"Hel"}, deltas)

	_, err = store.Get(context.Background(), "c1")
	assert.True(t, chat.IsNotFound(err))
}

func TestTurnStreamEmitFailureCommitsNothing(t *testing.T) {
	fake := &fakeLLM{stream: newFakeStream("Hello")}
	svc, store := newTestService(fake, Config{})

	_, err := svc.TurnStream(context.Background(), chat.TurnRequest{ConversationID: "c1", Message: "hi"}, func(delta string) error {
		return errors.New("client went away")
	})
	require.Error(t, err)

	_, err = store.Get(context.Background(), "c1")
	assert.True(t, chat.IsNotFound(err))
}

func TestDeleteConversation(t *testing.T) {
	fake := &fakeLLM{reply: "reply"}
	svc, _ := newTestService(fake, Config{})

	resp, err := svc.Turn(context.Background(), chat.TurnRequest{Message: "hi"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), resp.ConversationID))

	_, err = svc.Get(context.Background(), resp.ConversationID)
	assert.True(t, chat.IsNotFound(err))
}

func TestDeleteReleasesTurnLock(t *testing.T) {
	fake := &fakeLLM{reply: "reply"}
	svc, _ := newTestService(fake, Config{})

	resp, err := svc.Turn(context.Background(), chat.TurnRequest{Message: "hi"})
	require.NoError(t, err)

	svc.mu.Lock()
	_, held := svc.locks[resp.ConversationID]
	svc.mu.Unlock()
	require.True(t, held)

	require.NoError(t, svc.Delete(context.Background(), resp.ConversationID))

	svc.mu.Lock()
	_, held = svc.locks[resp.ConversationID]
	svc.mu.Unlock()
	assert.False(t, held)
}
