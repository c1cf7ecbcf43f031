package agent

import (
	"context"
	"sort"
	"testing"
)

func namedTool(name string) *FuncTool {
	return &FuncTool{
		ToolName: name,
		ToolDesc: name,
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			return name, nil
		},
	}
}

func TestToolRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewToolRegistry()
		r.Register(namedTool("alpha"))
		r.Register(namedTool("beta"))
		if r.Get("alpha") == nil || r.Get("beta") == nil {
			t.Fatal("expected registered tools to be retrievable")
		}
		if r.Get("gamma") != nil {
			t.Fatal("expected nil for an unknown tool")
		}
	})

	t.Run("later registration wins", func(t *testing.T) {
		r := NewToolRegistry()
		r.Register(namedTool("alpha"))
		replacement := namedTool("alpha")
		replacement.ToolDesc = "replacement"
		r.Register(replacement)
		if r.Get("alpha").Description() != "replacement" {
			t.Fatal("expected the later registration to replace the earlier one")
		}
	})

	t.Run("list and all", func(t *testing.T) {
		r := NewToolRegistry()
		r.Register(namedTool("b"))
		r.Register(namedTool("a"))

		names := r.List()
		sort.Strings(names)
		if len(names) != 2 || names[0] != "a" || names[1] != "b" {
			t.Fatalf("unexpected names %v", names)
		}

		all := r.All()
		delete(all, "a")
		if r.Get("a") == nil {
			t.Fatal("All must return a copy, not the registry's map")
		}
	})
}

func TestRegisterToolOnState(t *testing.T) {
	state := NewAgentState("t1")
	if StateTools(state) != nil {
		t.Fatal("expected no tools before registration")
	}

	RegisterToolOnState(state, namedTool("x"))
	tools := StateTools(state)
	if len(tools) != 1 || tools["x"] == nil {
		t.Fatalf("expected the per-run registry to hold x, got %v", tools)
	}
}
