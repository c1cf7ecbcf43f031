package hooks

import (
	"context"
	"strings"
	"testing"

	"deepagent/agent"
	"deepagent/backend"
)

func TestMemoryHook(t *testing.T) {
	ctx := context.Background()

	t.Run("injects into the system turn", func(t *testing.T) {
		state := agent.NewAgentState("t1")
		b := backend.NewState(state.Files)
		b.Write(ctx, "/AGENTS.md", "Always write tests.")

		h := NewMemoryHook(b)
		if err := h.BeforeAgent(ctx, state); err != nil {
			t.Fatal(err)
		}

		msgs, err := h.ModifyRequest(ctx, []agent.Message{agent.System("base prompt"), agent.Human("hi")})
		if err != nil {
			t.Fatal(err)
		}
		if msgs[0].Role != agent.RoleSystem {
			t.Fatal("expected system turn first")
		}
		if !strings.Contains(msgs[0].Content, "<agent_memory>") || !strings.Contains(msgs[0].Content, "Always write tests.") {
			t.Fatalf("expected memory block, got %q", msgs[0].Content)
		}
	})

	t.Run("prepends a system turn when none exists", func(t *testing.T) {
		state := agent.NewAgentState("t1")
		b := backend.NewState(state.Files)
		b.Write(ctx, "/AGENTS.md", "remember this")

		h := NewMemoryHook(b)
		h.BeforeAgent(ctx, state)
		msgs, _ := h.ModifyRequest(ctx, []agent.Message{agent.Human("hi")})
		if len(msgs) != 2 || msgs[0].Role != agent.RoleSystem {
			t.Fatalf("expected prepended system turn, got %+v", msgs)
		}
	})

	t.Run("missing memory files are skipped", func(t *testing.T) {
		state := agent.NewAgentState("t1")
		h := NewMemoryHook(backend.NewState(state.Files))
		if err := h.BeforeAgent(ctx, state); err != nil {
			t.Fatal(err)
		}
		msgs, err := h.ModifyRequest(ctx, []agent.Message{agent.Human("hi")})
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 1 {
			t.Fatalf("expected history untouched, got %+v", msgs)
		}
	})

	t.Run("request mutation never touches stored history", func(t *testing.T) {
		state := agent.NewAgentState("t1")
		b := backend.NewState(state.Files)
		b.Write(ctx, "/AGENTS.md", "memory")

		h := NewMemoryHook(b)
		h.BeforeAgent(ctx, state)
		original := []agent.Message{agent.System("base"), agent.Human("hi")}
		h.ModifyRequest(ctx, original)
		if original[0].Content != "base" {
			t.Fatal("ModifyRequest must not mutate the caller's messages")
		}
	})
}
