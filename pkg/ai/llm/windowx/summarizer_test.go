package windowx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/tokenx"
)

type scriptedLLM struct {
	reply    string
	err      error
	lastSent []llm.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	s.lastSent = messages
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Message: llm.NewAssistantMessage(s.reply)}, nil
}

func (s *scriptedLLM) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	return nil, errors.New("streaming not supported")
}

func TestLLMSummarizerProducesSystemSummary(t *testing.T) {
	provider := &scriptedLLM{reply: "They discussed deployment dates."}
	s := NewLLMSummarizer(llm.NewClient(provider), tokenx.CharCounter{}, "test-model", 256)

	old := []Message{
		msg(llm.RoleUser, "when do we ship", 4),
		msg(llm.RoleAssistant, "next tuesday", 3),
	}

	summary, err := s.Summarize(context.Background(), old)
	require.NoError(t, err)

	assert.Equal(t, llm.RoleSystem, summary.Role)
	assert.True(t, summary.Summary)
	assert.Contains(t, summary.Content, "Summary of the earlier conversation:")
	assert.Contains(t, summary.Content, "They discussed deployment dates.")
	assert.Greater(t, summary.ApproxTokens, 0)

	// the transcript sent to the provider carries the old messages
	require.Len(t, provider.lastSent, 2)
	assert.True(t, strings.Contains(provider.lastSent[1].Content, "when do we ship"))
	assert.True(t, strings.Contains(provider.lastSent[1].Content, "next tuesday"))
}

func TestLLMSummarizerEmptyInput(t *testing.T) {
	provider := &scriptedLLM{reply: "unused"}
	s := NewLLMSummarizer(llm.NewClient(provider), tokenx.CharCounter{}, "test-model", 0)

	_, err := s.Summarize(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummarizationUnavailable)
}

func TestLLMSummarizerProviderFailure(t *testing.T) {
	provider := &scriptedLLM{err: errors.New("timeout")}
	s := NewLLMSummarizer(llm.NewClient(provider), tokenx.CharCounter{}, "test-model", 0)

	_, err := s.Summarize(context.Background(), []Message{msg(llm.RoleUser, "hi", 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummarizationUnavailable)
}

func TestLLMSummarizerEmptyCompletion(t *testing.T) {
	provider := &scriptedLLM{reply: "   "}
	s := NewLLMSummarizer(llm.NewClient(provider), tokenx.CharCounter{}, "test-model", 0)

	_, err := s.Summarize(context.Background(), []Message{msg(llm.RoleUser, "hi", 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummarizationUnavailable)
}
