package hooks

import (
	"context"
	"strings"
	"testing"

	"deepagent/agent"
	"deepagent/backend"
)

func passThrough(output string) agent.ToolCallFunc {
	return func(_ context.Context, tc agent.ToolCall) (*agent.ToolResult, error) {
		return &agent.ToolResult{ToolCallID: tc.ID, Name: tc.Name, Output: output}, nil
	}
}

func TestEvictionHook(t *testing.T) {
	ctx := context.Background()

	t.Run("small result untouched", func(t *testing.T) {
		b := backend.NewState(nil)
		h := NewEvictionHook(b, 50)
		res, err := h.WrapToolCall(ctx, agent.ToolCall{ID: "a", Name: "grep"}, passThrough("short"))
		if err != nil {
			t.Fatal(err)
		}
		if res.Output != "short" {
			t.Fatalf("expected original output, got %q", res.Output)
		}
	})

	t.Run("large result evicted and retrievable", func(t *testing.T) {
		b := backend.NewState(nil)
		h := NewEvictionHook(b, 50)
		big := strings.Repeat("finding ", 500)

		res, err := h.WrapToolCall(ctx, agent.ToolCall{ID: "a", Name: "grep"}, passThrough(big))
		if err != nil {
			t.Fatal(err)
		}
		if res.Output == big {
			t.Fatal("expected eviction")
		}
		if !strings.Contains(res.Output, "/evictions/grep-") {
			t.Fatalf("expected an eviction path in the notice, got %q", res.Output)
		}

		// The original content round-trips byte-exact.
		paths, err := b.Glob(ctx, "grep-*", "/evictions")
		if err != nil || len(paths) != 1 {
			t.Fatalf("expected one eviction artifact, got %v, %v", paths, err)
		}
		raw, err := b.ReadRaw(ctx, paths[0])
		if err != nil {
			t.Fatal(err)
		}
		if raw != big {
			t.Fatal("evicted content did not round-trip")
		}
	})

	t.Run("distinct artifacts per eviction", func(t *testing.T) {
		b := backend.NewState(nil)
		h := NewEvictionHook(b, 50)
		big := strings.Repeat("x ", 500)
		h.WrapToolCall(ctx, agent.ToolCall{ID: "a", Name: "grep"}, passThrough(big))
		h.WrapToolCall(ctx, agent.ToolCall{ID: "b", Name: "grep"}, passThrough(big))

		paths, _ := b.Glob(ctx, "grep-*", "/evictions")
		if len(paths) != 2 {
			t.Fatalf("expected 2 artifacts, got %v", paths)
		}
	})

	t.Run("read_file excluded", func(t *testing.T) {
		b := backend.NewState(nil)
		h := NewEvictionHook(b, 50)
		big := strings.Repeat("line ", 500)
		res, err := h.WrapToolCall(ctx, agent.ToolCall{ID: "a", Name: "read_file"}, passThrough(big))
		if err != nil {
			t.Fatal(err)
		}
		if res.Output != big {
			t.Fatal("read_file results must never be evicted")
		}
	})

	t.Run("zero threshold disables", func(t *testing.T) {
		b := backend.NewState(nil)
		h := NewEvictionHook(b, 0)
		big := strings.Repeat("x ", 5000)
		res, _ := h.WrapToolCall(ctx, agent.ToolCall{ID: "a", Name: "grep"}, passThrough(big))
		if res.Output != big {
			t.Fatal("expected eviction disabled")
		}
	})

	t.Run("tool error passes through", func(t *testing.T) {
		b := backend.NewState(nil)
		h := NewEvictionHook(b, 50)
		res, err := h.WrapToolCall(ctx, agent.ToolCall{ID: "a", Name: "grep"},
			func(_ context.Context, tc agent.ToolCall) (*agent.ToolResult, error) {
				return nil, context.Canceled
			})
		if err != context.Canceled || res != nil {
			t.Fatalf("expected error pass-through, got %v, %v", res, err)
		}
	})
}
