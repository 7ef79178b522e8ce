package memoryx

import "github.com/Abraxas-365/parley/pkg/ai/llm"

// Memory represents a conversation memory with system prompt management
type Memory interface {
	// Messages returns all messages including system prompt
	// May return error if retrieval fails (e.g., database error)
	Messages() ([]llm.Message, error)

	// Add adds a new message to memory
	// Returns error if the operation fails
	Add(message llm.Message) error

	// Clear resets the conversation but keeps the system prompt
	// Returns error if the operation fails
	Clear() error
}

// BufferMemory keeps the conversation in process memory. Not safe for
// concurrent use; intended for single-owner message lists like a client UI.
type BufferMemory struct {
	system   string
	messages []llm.Message
}

// NewBufferMemory creates a buffer memory with an optional system prompt
func NewBufferMemory(systemPrompt string) *BufferMemory {
	return &BufferMemory{system: systemPrompt}
}

// Messages implements the Memory interface
func (m *BufferMemory) Messages() ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(m.messages)+1)
	if m.system != "" {
		out = append(out, llm.NewSystemMessage(m.system))
	}
	out = append(out, m.messages...)
	return out, nil
}

// Add implements the Memory interface
func (m *BufferMemory) Add(message llm.Message) error {
	m.messages = append(m.messages, message)
	return nil
}

// Clear implements the Memory interface
func (m *BufferMemory) Clear() error {
	m.messages = nil
	return nil
}
