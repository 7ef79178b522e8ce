package chat

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/windowx"
	"github.com/Abraxas-365/parley/pkg/errx"
)

// Conversation is the stored aggregate: an ordered, role-tagged message
// history under an opaque identifier. Mutated by appending exactly one user
// message and one assistant reply per completed turn.
type Conversation struct {
	ID        string            `json:"id"`
	Messages  []windowx.Message `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewConversation creates an empty conversation
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append validates and appends a message, updating the modification time
func (c *Conversation) Append(msg windowx.Message) error {
	msgs, err := windowx.Append(c.Messages, msg)
	if err != nil {
		return err
	}
	c.Messages = msgs
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// TotalTokens returns the token estimate for the whole history
func (c *Conversation) TotalTokens() int {
	return windowx.TotalTokens(c.Messages)
}

// Clone returns a deep copy. Stores hand out clones so a failed turn never
// leaks partial state back into the stored conversation.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]windowx.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}

// TranscriptMessage is the stable wire representation of a message.
// This shape is the compatibility contract with callers; everything else
// about a conversation may change.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript returns the conversation as ordered role/content pairs
func (c *Conversation) Transcript() []TranscriptMessage {
	out := make([]TranscriptMessage, len(c.Messages))
	for i, m := range c.Messages {
		out[i] = TranscriptMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// ============================================================================
// Requests / Responses
// ============================================================================

// TurnRequest asks for one conversation turn
type TurnRequest struct {
	// ConversationID is optional; when empty the service mints one
	ConversationID string `json:"conversation_id"`
	// Message is the user's message content
	Message string `json:"message"`
	// Temperature optionally overrides the configured sampling temperature
	Temperature *float32 `json:"temperature,omitempty"`
	// MaxTokens optionally overrides the configured reply length bound
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// TurnResponse is the outcome of one completed turn
type TurnResponse struct {
	ConversationID string            `json:"conversation_id"`
	Reply          TranscriptMessage `json:"reply"`
	Usage          llm.Usage         `json:"usage"`
	// ContextWarning is set when the reduced prompt overran the budget
	// (non-fatal; the turn still completed)
	ContextWarning string `json:"context_warning,omitempty"`
	// Summarized reports whether older history was collapsed into a summary
	// for this turn's prompt
	Summarized bool `json:"summarized"`
}

// ============================================================================
// Error Registry - chat-specific errors
// ============================================================================

var ErrRegistry = errx.NewRegistry("CHAT")

var (
	CodeConversationNotFound = ErrRegistry.Register("CONVERSATION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Conversation not found")
	CodeInvalidMessage       = ErrRegistry.Register("INVALID_MESSAGE", errx.TypeValidation, http.StatusBadRequest, "Message has an invalid role or empty content")
	CodeProviderUnavailable  = ErrRegistry.Register("PROVIDER_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "Completion provider unavailable")
	CodeStoreFailure         = ErrRegistry.Register("STORE_FAILURE", errx.TypeInternal, http.StatusInternalServerError, "Conversation store failure")
)

func ErrConversationNotFound() *errx.Error {
	return ErrRegistry.New(CodeConversationNotFound)
}

func ErrInvalidMessage() *errx.Error {
	return ErrRegistry.New(CodeInvalidMessage)
}

func ErrProviderUnavailable(err error) *errx.Error {
	return ErrRegistry.NewWithError(CodeProviderUnavailable, err)
}

func ErrStoreFailure(err error) *errx.Error {
	return ErrRegistry.NewWithError(CodeStoreFailure, err)
}

// IsNotFound reports whether err is the conversation-not-found error
func IsNotFound(err error) bool {
	return errx.IsCode(err, CodeConversationNotFound)
}
