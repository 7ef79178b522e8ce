package memoryx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
)

func TestBufferMemoryKeepsMessageOrder(t *testing.T) {
	m := NewBufferMemory("")

	require.NoError(t, m.Add(llm.NewUserMessage("hi")))
	require.NoError(t, m.Add(llm.NewAssistantMessage("hello")))
	require.NoError(t, m.Add(llm.NewUserMessage("how are you?")))

	messages, err := m.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, messages[1].Role)
	assert.Equal(t, "how are you?", messages[2].Content)
}

func TestBufferMemoryPrependsSystemPrompt(t *testing.T) {
	m := NewBufferMemory("You are helpful.")

	require.NoError(t, m.Add(llm.NewUserMessage("hi")))

	messages, err := m.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "You are helpful.", messages[0].Content)
}

func TestBufferMemoryClearKeepsSystemPrompt(t *testing.T) {
	m := NewBufferMemory("You are helpful.")

	require.NoError(t, m.Add(llm.NewUserMessage("hi")))
	require.NoError(t, m.Clear())

	messages, err := m.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
}
