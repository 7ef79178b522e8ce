package windowx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/tokenx"
)

// ErrSummarizationUnavailable is returned when the summarization provider
// cannot be reached or produces nothing usable. Reduce recovers from it by
// truncating instead; only direct callers of Summarize see it.
var ErrSummarizationUnavailable = errors.New("summarization unavailable")

// Summarizer collapses an ordered run of non-system messages into a single
// system-role summary message
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message) (Message, error)
}

const summarySystemPrompt = "You compress prior chat history. Preserve decisions, facts, names, numbers and open questions. Omit pleasantries and redundant detail. Reply with the summary only."

// LLMSummarizer summarizes through a completion provider with a fixed
// instruction
type LLMSummarizer struct {
	client    *llm.Client
	counter   tokenx.Counter
	model     string
	maxTokens int
}

// NewLLMSummarizer creates a summarizer backed by client. maxTokens bounds
// the summary's length; zero means provider default.
func NewLLMSummarizer(client *llm.Client, counter tokenx.Counter, model string, maxTokens int) *LLMSummarizer {
	return &LLMSummarizer{
		client:    client,
		counter:   counter,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Summarize implements the Summarizer interface
func (s *LLMSummarizer) Summarize(ctx context.Context, messages []Message) (Message, error) {
	if len(messages) == 0 {
		return Message{}, fmt.Errorf("%w: nothing to summarize", ErrSummarizationUnavailable)
	}

	prompt := []llm.Message{
		llm.NewSystemMessage(summarySystemPrompt),
		llm.NewUserMessage("Summarize the following conversation, preserving facts and decisions:\n\n" + renderTranscript(messages)),
	}

	opts := []llm.Option{
		llm.WithModel(s.model),
		llm.WithTemperature(0.3),
	}
	if s.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.maxTokens))
	}

	resp, err := s.client.Chat(ctx, prompt, opts...)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s", ErrSummarizationUnavailable, err)
	}

	content := strings.TrimSpace(resp.Message.Content)
	if content == "" {
		return Message{}, fmt.Errorf("%w: provider returned an empty summary", ErrSummarizationUnavailable)
	}

	content = "Summary of the earlier conversation:\n" + content
	return Message{
		Role:         llm.RoleSystem,
		Content:      content,
		ApproxTokens: s.counter.Count(content),
		Summary:      true,
	}, nil
}

func renderTranscript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("[" + m.Role + "] ")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
