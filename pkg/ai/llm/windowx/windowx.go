// Package windowx keeps a conversation history inside a token budget.
//
// It decides, per completion request, which messages are sent verbatim,
// which are collapsed into a synthesized summary, and which are dropped.
// The caller owns the conversation; windowx holds no state between calls.
package windowx

import (
	"errors"
	"fmt"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/tokenx"
)

// ErrInvalidMessage is returned when a message has an unknown role or
// disallowed empty content
var ErrInvalidMessage = errors.New("invalid message")

// Message is a role-tagged chat message with a token estimate computed once
// at insertion time. Immutable after creation.
type Message struct {
	Role         string `json:"role"`
	Content      string `json:"content"`
	ApproxTokens int    `json:"approx_tokens"`
	Summary      bool   `json:"summary,omitempty"`
}

// New builds a Message, computing its token estimate with the given counter
func New(role, content string, counter tokenx.Counter) Message {
	return Message{
		Role:         role,
		Content:      content,
		ApproxTokens: counter.Count(content),
	}
}

// LLM converts the message to its wire representation
func (m Message) LLM() llm.Message {
	return llm.Message{Role: m.Role, Content: m.Content}
}

// Append validates msg and returns history with msg appended. The input
// slice is not modified.
//
// A system message with empty content is only allowed while the history has
// no pinned system message yet; user and assistant messages must always have
// content.
func Append(history []Message, msg Message) ([]Message, error) {
	if !llm.ValidRole(msg.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	}
	if msg.Content == "" {
		if msg.Role != llm.RoleSystem || PinnedIndex(history) >= 0 {
			return nil, fmt.Errorf("%w: empty content for role %q", ErrInvalidMessage, msg.Role)
		}
	}

	out := make([]Message, len(history)+1)
	copy(out, history)
	out[len(history)] = msg
	return out, nil
}

// PinnedIndex returns the index of the pinned system message, or -1.
// The first system message in the history is the pinned one; summary
// messages inserted by a reduction are system-role but never pinned.
func PinnedIndex(history []Message) int {
	for i, m := range history {
		if m.Role == llm.RoleSystem && !m.Summary {
			return i
		}
	}
	return -1
}

// TotalTokens sums the token estimates of all messages
func TotalTokens(history []Message) int {
	total := 0
	for _, m := range history {
		total += m.ApproxTokens
	}
	return total
}

// Budget bounds a reduction
type Budget struct {
	// MaxTokens is the token ceiling for the reduced history
	MaxTokens int
	// RecentKeep is how many trailing messages are always kept verbatim
	RecentKeep int
}

// Validate checks the budget's invariants
func (b Budget) Validate() error {
	if b.MaxTokens <= 0 {
		return fmt.Errorf("budget: max tokens must be positive, got %d", b.MaxTokens)
	}
	if b.RecentKeep < 0 {
		return fmt.Errorf("budget: recent keep must not be negative, got %d", b.RecentKeep)
	}
	return nil
}

// Policy selects the reduction strategy
type Policy string

const (
	// PolicyKeepAll never drops anything
	PolicyKeepAll Policy = "keep_all"
	// PolicySlidingWindow keeps the newest messages that fit, no summary
	PolicySlidingWindow Policy = "sliding_window"
	// PolicySummarize collapses everything before the recent window into a
	// summary, keeping at least the newest message verbatim
	PolicySummarize Policy = "summarize"
	// PolicyHybrid summarizes the old segment when a recent window is
	// configured and a summarizer is available, otherwise slides
	PolicyHybrid Policy = "hybrid"
)

// ParsePolicy converts a config string into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyKeepAll, PolicySlidingWindow, PolicySummarize, PolicyHybrid:
		return Policy(s), nil
	case "":
		return PolicyHybrid, nil
	}
	return "", fmt.Errorf("unknown reduction policy %q", s)
}

// Warning is a non-fatal condition reported alongside a usable reduction
type Warning string

const (
	// WarningBudgetExceededByLatestMessage means the mandatory kept messages
	// alone overrun the budget; the result is still returned
	WarningBudgetExceededByLatestMessage Warning = "budget_exceeded_by_latest_message"
)

// Reduction is the outcome of fitting a history under a budget
type Reduction struct {
	Messages    []Message
	TotalTokens int
	Summarized  bool
	Warning     Warning
}

// LLMMessages converts the reduced history to provider wire messages
func (r Reduction) LLMMessages() []llm.Message {
	out := make([]llm.Message, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.LLM()
	}
	return out
}
