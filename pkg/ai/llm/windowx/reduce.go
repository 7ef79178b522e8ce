package windowx

import (
	"context"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
)

// Manager applies a reduction policy to conversation histories.
// It is stateless and safe for concurrent use across conversations.
type Manager struct {
	policy     Policy
	summarizer Summarizer
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithSummarizer provides the summarization capability. Without it the
// summarizing policies degrade to sliding-window truncation.
func WithSummarizer(s Summarizer) ManagerOption {
	return func(m *Manager) {
		m.summarizer = s
	}
}

// NewManager creates a manager for the given policy
func NewManager(policy Policy, opts ...ManagerOption) *Manager {
	m := &Manager{policy: policy}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reduce fits history under budget according to the manager's policy.
//
// The result preserves relative order, keeps the pinned system message first
// and never empty-handed: for a non-empty history at least the newest message
// is returned, flagged with WarningBudgetExceededByLatestMessage when it alone
// overruns the budget. A history already within budget is returned unchanged,
// which makes Reduce idempotent on its own output.
//
// Summarizer failures are recovered locally by falling back to truncation;
// they are never surfaced to the caller.
func (m *Manager) Reduce(ctx context.Context, history []Message, budget Budget) (Reduction, error) {
	if err := budget.Validate(); err != nil {
		return Reduction{}, err
	}
	if len(history) == 0 {
		return Reduction{}, nil
	}

	total := TotalTokens(history)
	if m.policy == PolicyKeepAll || total <= budget.MaxTokens {
		kept := make([]Message, len(history))
		copy(kept, history)
		return finish(Reduction{Messages: kept, TotalTokens: total}, budget), nil
	}

	pinned, rest := splitPinned(history)

	switch m.policy {
	case PolicySlidingWindow:
		return finish(slide(pinned, rest, budget), budget), nil
	case PolicySummarize, PolicyHybrid:
		return finish(m.summarizeOld(ctx, pinned, rest, budget), budget), nil
	default:
		return finish(slide(pinned, rest, budget), budget), nil
	}
}

// summarizeOld keeps the recent window verbatim and collapses the messages
// before it into one summary, falling back to truncation of the old segment
// when no summarizer is configured, the summarizer fails, or its output does
// not fit.
func (m *Manager) summarizeOld(ctx context.Context, pinned *Message, rest []Message, budget Budget) Reduction {
	recentKeep := budget.RecentKeep
	if recentKeep <= 0 {
		if m.policy == PolicySummarize {
			// summarize policy always preserves at least the newest message
			recentKeep = 1
		} else {
			return slide(pinned, rest, budget)
		}
	}
	if m.summarizer == nil {
		return slide(pinned, rest, budget)
	}
	if recentKeep > len(rest) {
		recentKeep = len(rest)
	}

	recent := rest[len(rest)-recentKeep:]
	old := rest[:len(rest)-recentKeep]

	base := TotalTokens(recent)
	if pinned != nil {
		base += pinned.ApproxTokens
	}
	if base > budget.MaxTokens {
		// the mandatory window alone does not fit; nothing left to summarize into
		return slide(pinned, rest, budget)
	}
	if len(old) == 0 {
		return assemble(pinned, nil, recent, false)
	}

	summary, err := m.summarizer.Summarize(ctx, old)
	if err == nil && summary.Content != "" && base+summary.ApproxTokens <= budget.MaxTokens {
		summary.Role = llm.RoleSystem
		summary.Summary = true
		return assemble(pinned, []Message{summary}, recent, true)
	}

	// recovered locally: truncate the old segment instead
	kept := slideSegment(old, budget.MaxTokens-base)
	return assemble(pinned, kept, recent, false)
}

// slide keeps the newest messages that fit, walking newest to oldest and
// accumulating on top of the pinned message's token count. A message whose
// inclusion lands exactly on the budget is kept; comparisons are strictly
// greater-than. When not even the newest message fits it is kept anyway.
func slide(pinned *Message, rest []Message, budget Budget) Reduction {
	reserved := 0
	if pinned != nil {
		reserved = pinned.ApproxTokens
	}

	kept := slideSegment(rest, budget.MaxTokens-reserved)
	if len(kept) == 0 && len(rest) > 0 {
		// even the single newest message overruns the budget; keep it anyway
		kept = rest[len(rest)-1:]
	}
	return assemble(pinned, nil, kept, false)
}

// slideSegment keeps the suffix of msgs whose total fits within remaining
// tokens. Returns nil when not even the newest message fits.
func slideSegment(msgs []Message, remaining int) []Message {
	acc := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		if acc+msgs[i].ApproxTokens > remaining {
			break
		}
		acc += msgs[i].ApproxTokens
		start = i
	}
	if start >= len(msgs) {
		return nil
	}
	return msgs[start:]
}

func splitPinned(history []Message) (*Message, []Message) {
	idx := PinnedIndex(history)
	if idx < 0 {
		return nil, history
	}
	pinned := history[idx]
	rest := make([]Message, 0, len(history)-1)
	rest = append(rest, history[:idx]...)
	rest = append(rest, history[idx+1:]...)
	return &pinned, rest
}

// assemble builds the reduction in canonical order: pinned first, then the
// middle segment (summary or truncated old messages), then the recent window.
func assemble(pinned *Message, middle, recent []Message, summarized bool) Reduction {
	out := make([]Message, 0, 1+len(middle)+len(recent))
	if pinned != nil {
		out = append(out, *pinned)
	}
	out = append(out, middle...)
	out = append(out, recent...)
	return Reduction{
		Messages:    out,
		TotalTokens: TotalTokens(out),
		Summarized:  summarized,
	}
}

func finish(r Reduction, budget Budget) Reduction {
	if r.TotalTokens > budget.MaxTokens {
		r.Warning = WarningBudgetExceededByLatestMessage
	}
	return r
}
