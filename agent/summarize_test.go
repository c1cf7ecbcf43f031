package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deepagent/llm"
)

type summaryClient struct {
	summary string
	err     error
	calls   int
}

func (c *summaryClient) Call(_ context.Context, _ llm.Request) (*llm.Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Content: c.summary}, nil
}

func (c *summaryClient) Stream(_ context.Context, _ llm.Request, ch chan<- llm.StreamChunk) error {
	close(ch)
	return errors.New("not used")
}

func longHistory(n int) []Message {
	msgs := NewMessages(Human("the task"))
	filler := strings.Repeat("word ", 200)
	for i := 0; i < n; i++ {
		msgs = msgs.AI(filler)
	}
	return msgs
}

func TestSummarizer_Compact(t *testing.T) {
	ctx := context.Background()

	t.Run("below threshold is a no-op", func(t *testing.T) {
		client := &summaryClient{summary: "sum"}
		s := NewSummarizer(client, "test-model", 1_000_000)
		msgs := longHistory(30)
		out := s.Compact(ctx, msgs)
		if len(out) != len(msgs) {
			t.Fatalf("expected unchanged history, got %d messages", len(out))
		}
		if client.calls != 0 {
			t.Error("expected no summary call below threshold")
		}
	})

	t.Run("compacts older turns into a summary", func(t *testing.T) {
		client := &summaryClient{summary: "what happened so far"}
		s := NewSummarizer(client, "test-model", 3000)
		s.KeepMessages = 5
		msgs := longHistory(30)

		out := s.Compact(ctx, msgs)
		if len(out) != 6 {
			t.Fatalf("expected summary + 5 kept messages, got %d", len(out))
		}
		if out[0].Role != RoleSystem || !strings.Contains(out[0].Content, "[Conversation Summary]") {
			t.Fatalf("expected summary system turn first, got %+v", out[0])
		}
		if !strings.Contains(out[0].Content, "what happened so far") {
			t.Error("expected the model's summary text")
		}
		if out[5].Content != msgs[len(msgs)-1].Content {
			t.Error("expected the most recent turns kept verbatim")
		}
	})

	t.Run("kept suffix never starts with a tool result", func(t *testing.T) {
		client := &summaryClient{summary: "sum"}
		s := NewSummarizer(client, "test-model", 600)
		s.KeepMessages = 2

		filler := strings.Repeat("word ", 200)
		msgs := NewMessages(Human(filler)).
			AI(filler).
			AI("", ToolCall{ID: "a", Name: "ls"}).
			Tool("a", "ls", filler).
			AI("done")

		out := s.Compact(ctx, msgs)
		if out[1].Role == RoleTool {
			t.Fatalf("tool result separated from its assistant turn: %+v", out[1])
		}
		// The assistant turn carrying the call must be kept with its result.
		if len(out) != 4 || len(out[1].ToolCalls) != 1 {
			t.Fatalf("expected boundary moved back to the calling turn, got %d messages", len(out))
		}
	})

	t.Run("compacted history fits back under the budget", func(t *testing.T) {
		client := &summaryClient{summary: "brief"}
		s := NewSummarizer(client, "test-model", 500)
		s.KeepMessages = 10
		msgs := longHistory(30)

		out := s.Compact(ctx, msgs)
		if len(out) >= len(msgs) {
			t.Fatalf("expected a shorter history, got %d messages", len(out))
		}
		budget := int(float64(s.MaxTokens) * DefaultSummarizeThreshold)
		if got := CountMessageTokens(out); got > budget {
			t.Fatalf("expected at most %d tokens after compaction, got %d", budget, got)
		}
		// A compacted history must not trip the threshold again on the
		// next step.
		if s.ShouldCompact(out) {
			t.Fatal("compaction re-triggered on its own output")
		}
	})

	t.Run("summary failure degrades to pass-through", func(t *testing.T) {
		client := &summaryClient{err: errors.New("model down")}
		s := NewSummarizer(client, "test-model", 500)
		s.KeepMessages = 5
		msgs := longHistory(30)
		out := s.Compact(ctx, msgs)
		if len(out) != len(msgs) {
			t.Fatalf("expected unchanged history on failure, got %d messages", len(out))
		}
	})

	t.Run("disabled without a budget", func(t *testing.T) {
		s := NewSummarizer(&summaryClient{summary: "sum"}, "test-model", 0)
		if s.ShouldCompact(longHistory(50)) {
			t.Fatal("expected compaction disabled with zero budget")
		}
	})
}
