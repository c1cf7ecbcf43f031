package agent

import (
	"context"
	"fmt"
	"strings"

	"deepagent/llm"
)

// Summarization defaults. Compaction triggers at a fraction of the token
// budget so the run keeps headroom for the next model response.
const (
	DefaultSummarizeThreshold = 0.85
	DefaultKeepMessages       = 20
)

const summaryPrompt = `Summarize the conversation so far for an AI agent that will continue the task. Capture:
- the user's goal and all constraints given
- what has been done, with concrete outcomes (files written, commands run, results)
- what remains to be done
- any decisions made and their reasons
Be factual and complete; the agent will only see this summary plus the most recent messages.`

// Summarizer compacts a turn history when it approaches a token budget:
// older turns are replaced by a single summary message, the most recent
// turns are kept verbatim. The compacted history is persisted, so later
// checkpoints contain the summary rather than the raw turns.
type Summarizer struct {
	client llm.Client
	model  string

	// MaxTokens is the context budget. 0 disables compaction.
	MaxTokens int
	// KeepMessages is how many trailing messages survive verbatim.
	KeepMessages int
	// Threshold is the fraction of MaxTokens that triggers compaction.
	Threshold float64
}

// NewSummarizer creates a summarizer with default keep count and threshold.
func NewSummarizer(client llm.Client, model string, maxTokens int) *Summarizer {
	return &Summarizer{
		client:       client,
		model:        model,
		MaxTokens:    maxTokens,
		KeepMessages: DefaultKeepMessages,
		Threshold:    DefaultSummarizeThreshold,
	}
}

// ShouldCompact reports whether the history has crossed the trigger point.
func (s *Summarizer) ShouldCompact(msgs []Message) bool {
	if s == nil || s.MaxTokens <= 0 {
		return false
	}
	return CountMessageTokens(msgs) > s.budget()
}

// budget is the token count that triggers compaction and that the
// compacted history must fit back under.
func (s *Summarizer) budget() int {
	threshold := s.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSummarizeThreshold
	}
	return int(float64(s.MaxTokens) * threshold)
}

// Compact returns a compacted history, or the input unchanged when below
// threshold, when too short to split, or when the summary call fails. A
// failed summary degrades to pass-through rather than aborting the run.
func (s *Summarizer) Compact(ctx context.Context, msgs []Message) []Message {
	if !s.ShouldCompact(msgs) {
		return msgs
	}
	keep := s.KeepMessages
	if keep <= 0 {
		keep = DefaultKeepMessages
	}
	if len(msgs) <= keep+1 {
		return msgs
	}

	cut := splitBoundary(msgs, len(msgs)-keep)
	if cut <= 0 {
		return msgs
	}

	// The kept tail must fit back under the trigger budget with room for
	// the summary turn, or compaction would re-trigger every step without
	// the history ever shrinking. The summary call is capped to the
	// reserved share of the budget.
	budget := s.budget()
	reserve := budget / 4
	cut = growCut(msgs, cut, budget-reserve)
	older, recent := msgs[:cut], msgs[cut:]

	summary, err := s.summarize(ctx, older, reserve)
	if err != nil || strings.TrimSpace(summary) == "" {
		return msgs
	}

	out := make([]Message, 0, len(recent)+1)
	out = append(out, System("[Conversation Summary]\n"+summary))
	out = append(out, recent...)
	return out
}

func (s *Summarizer) summarize(ctx context.Context, msgs []Message, maxTokens int) (string, error) {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Role, m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&sb, "  -> called %s(%s)\n", tc.Name, tc.RawArgs)
		}
	}
	resp, err := s.client.Call(ctx, llm.Request{
		Model:        s.model,
		SystemPrompt: summaryPrompt,
		Messages:     []llm.Message{{Role: RoleUser, Content: sb.String()}},
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summary call: %w", err)
	}
	return resp.Content, nil
}

// splitBoundary moves the cut point backward until the kept suffix does not
// start with tool results, so a tool message is never separated from the
// assistant turn that requested it.
func splitBoundary(msgs []Message, cut int) int {
	for cut > 0 && msgs[cut].Role == RoleTool {
		cut--
	}
	return cut
}

// growCut moves the cut forward until the kept suffix fits within target
// tokens, skipping past tool results so a result is always summarized
// together with its calling turn. A single oversized final turn can still
// exceed the target; at least one message is always kept.
func growCut(msgs []Message, cut, target int) int {
	for cut < len(msgs)-1 && CountMessageTokens(msgs[cut:]) > target {
		cut++
		for cut < len(msgs)-1 && msgs[cut].Role == RoleTool {
			cut++
		}
	}
	return cut
}
