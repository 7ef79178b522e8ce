package chatsrv

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/tokenx"
	"github.com/Abraxas-365/parley/pkg/ai/llm/windowx"
	"github.com/Abraxas-365/parley/pkg/chat"
	"github.com/Abraxas-365/parley/pkg/errx"
	"github.com/Abraxas-365/parley/pkg/logx"
)

// Config holds the tunables a Service applies to every turn
type Config struct {
	Model          string
	Temperature    float32
	MaxReplyTokens int
	SystemPrompt   string
	Budget         windowx.Budget
}

// Service runs conversation turns: load, append the user message, reduce the
// history to the prompt budget, call the provider and commit both new
// messages together. A failed turn leaves the stored conversation untouched.
type Service struct {
	store   chat.ConversationStore
	client  *llm.Client
	manager *windowx.Manager
	counter tokenx.Counter
	cfg     Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a turn service
func NewService(store chat.ConversationStore, client *llm.Client, manager *windowx.Manager, counter tokenx.Counter, cfg Config) *Service {
	return &Service{
		store:   store,
		client:  client,
		manager: manager,
		counter: counter,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor serializes turns per conversation so concurrent requests against
// the same ID cannot interleave their read-modify-write cycles.
func (s *Service) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// stagedTurn is a turn in flight: the cloned conversation with the user
// message appended, and the reduced prompt to send. Nothing is stored until
// commit.
type stagedTurn struct {
	id        string
	staged    *chat.Conversation
	reduction windowx.Reduction
}

// stage loads the conversation, appends the user message to a copy and
// reduces the history to the prompt budget. The caller must hold the
// conversation's lock.
func (s *Service) stage(ctx context.Context, id string, message string) (*stagedTurn, error) {
	conv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	staged := conv.Clone()

	userMsg := windowx.New(llm.RoleUser, message, s.counter)
	if err := staged.Append(userMsg); err != nil {
		return nil, chat.ErrInvalidMessage().WithDetail("reason", err.Error())
	}

	reduction, err := s.manager.Reduce(ctx, staged.Messages, s.cfg.Budget)
	if err != nil {
		return nil, errx.Wrap(err, "failed to reduce conversation context", errx.TypeInternal).
			WithDetail("conversation_id", id)
	}
	if reduction.Warning != "" {
		logx.WithFields(logx.Fields{
			"conversation_id": id,
			"total_tokens":    reduction.TotalTokens,
			"max_tokens":      s.cfg.Budget.MaxTokens,
		}).Warnf("prompt exceeds context budget: %s", reduction.Warning)
	}

	return &stagedTurn{id: id, staged: staged, reduction: reduction}, nil
}

// commit appends the assistant reply and stores the whole turn
func (s *Service) commit(ctx context.Context, t *stagedTurn, replyContent string, usage llm.Usage) (*chat.TurnResponse, error) {
	replyMsg := windowx.New(llm.RoleAssistant, replyContent, s.counter)
	if err := t.staged.Append(replyMsg); err != nil {
		return nil, chat.ErrProviderUnavailable(err).WithDetail("reason", err.Error())
	}

	if err := s.store.Put(ctx, t.staged); err != nil {
		return nil, err
	}

	return &chat.TurnResponse{
		ConversationID: t.id,
		Reply:          chat.TranscriptMessage{Role: replyMsg.Role, Content: replyMsg.Content},
		Usage:          usage,
		ContextWarning: string(t.reduction.Warning),
		Summarized:     t.reduction.Summarized,
	}, nil
}

// Turn runs one conversation turn and returns the assistant reply
func (s *Service) Turn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, chat.ErrInvalidMessage().WithDetail("reason", "empty message")
	}

	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	turn, err := s.stage(ctx, id, req.Message)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Chat(ctx, turn.reduction.LLMMessages(), s.chatOptions(req)...)
	if err != nil {
		return nil, chat.ErrProviderUnavailable(err).WithDetail("conversation_id", id)
	}

	return s.commit(ctx, turn, resp.Message.Content, resp.Usage)
}

// TurnStream runs one conversation turn, delivering the reply incrementally
// through emit. Each call carries the newly generated text, not the
// accumulated reply. The turn commits only after the stream completes; a
// broken stream or failed emit leaves the stored conversation untouched.
func (s *Service) TurnStream(ctx context.Context, req chat.TurnRequest, emit func(delta string) error) (*chat.TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, chat.ErrInvalidMessage().WithDetail("reason", "empty message")
	}

	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	turn, err := s.stage(ctx, id, req.Message)
	if err != nil {
		return nil, err
	}

	stream, err := s.client.ChatStream(ctx, turn.reduction.LLMMessages(), s.chatOptions(req)...)
	if err != nil {
		return nil, chat.ErrProviderUnavailable(err).WithDetail("conversation_id", id)
	}
	defer stream.Close()

	// chunks arrive as the accumulated assistant message so far
	var content string
	for {
		msg, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, chat.ErrProviderUnavailable(err).WithDetail("conversation_id", id)
		}
		if len(msg.Content) > len(content) {
			delta := msg.Content[len(content):]
			content = msg.Content
			if err := emit(delta); err != nil {
				return nil, errx.Wrap(err, "failed to deliver stream chunk", errx.TypeInternal).
					WithDetail("conversation_id", id)
			}
		}
	}

	return s.commit(ctx, turn, content, llm.Usage{})
}

func (s *Service) chatOptions(req chat.TurnRequest) []llm.Option {
	opts := []llm.Option{
		llm.WithModel(s.cfg.Model),
		llm.WithTemperature(s.cfg.Temperature),
	}
	if s.cfg.MaxReplyTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.cfg.MaxReplyTokens))
	}
	if req.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llm.WithMaxTokens(*req.MaxTokens))
	}
	return opts
}

// load fetches the conversation, creating a fresh one seeded with the
// configured system prompt when the ID is unknown
func (s *Service) load(ctx context.Context, id string) (*chat.Conversation, error) {
	conv, err := s.store.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !chat.IsNotFound(err) {
		return nil, err
	}

	conv = chat.NewConversation(id)
	if s.cfg.SystemPrompt != "" {
		sys := windowx.New(llm.RoleSystem, s.cfg.SystemPrompt, s.counter)
		if err := conv.Append(sys); err != nil {
			return nil, chat.ErrInvalidMessage().WithDetail("reason", err.Error())
		}
	}
	return conv, nil
}

// Get returns a stored conversation
func (s *Service) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a stored conversation and releases its turn lock
func (s *Service) Delete(ctx context.Context, id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
	return nil
}
