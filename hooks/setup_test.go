package hooks

import (
	"testing"

	"deepagent/agent"
)

func TestDefaultStack(t *testing.T) {
	t.Run("gates from interrupt_on", func(t *testing.T) {
		cfg := agent.Config{InterruptOn: []string{"edit_file"}}
		stack := Default(cfg, nil, nil)
		if _, ok := stack[0].(*ApprovalHook); !ok {
			t.Fatalf("expected approval hook outermost, got %T", stack[0])
		}
	})

	t.Run("no gates without interrupt_on", func(t *testing.T) {
		stack := Default(agent.Config{}, nil, nil)
		for _, h := range stack {
			if _, ok := h.(*ApprovalHook); ok {
				t.Fatal("unexpected approval hook")
			}
		}
	})

	t.Run("eviction is opt-in", func(t *testing.T) {
		stack := Default(agent.Config{}, nil, nil)
		for _, h := range stack {
			if _, ok := h.(*EvictionHook); ok {
				t.Fatal("unexpected eviction hook without a limit")
			}
		}
		stack = Default(agent.Config{EvictionThreshold: 5000}, nil, nil)
		found := false
		for _, h := range stack {
			if _, ok := h.(*EvictionHook); ok {
				found = true
			}
		}
		if !found {
			t.Fatal("expected eviction hook with a limit")
		}
	})
}
