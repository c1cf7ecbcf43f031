package hooks

import (
	"context"
	"strings"

	"deepagent/agent"
	"deepagent/backend"
)

// DefaultMemoryPaths are the files checked for persistent agent memory.
var DefaultMemoryPaths = []string{"/AGENTS.md", "/memories/AGENTS.md"}

// MemoryHook loads memory files from the backend once per run and injects
// them into the system context of every model call. Missing files are
// skipped silently; memory is optional.
type MemoryHook struct {
	agent.BaseHook
	b     backend.Backend
	paths []string

	memory string
}

// NewMemoryHook creates a memory hook. With no paths the defaults are used.
func NewMemoryHook(b backend.Backend, paths ...string) *MemoryHook {
	if len(paths) == 0 {
		paths = DefaultMemoryPaths
	}
	return &MemoryHook{b: b, paths: paths}
}

func (h *MemoryHook) Name() string { return "memory" }

func (h *MemoryHook) BeforeAgent(ctx context.Context, state *agent.AgentState) error {
	b := h.b
	if b == nil {
		b = state.FileBackend()
	}
	var parts []string
	for _, p := range h.paths {
		content, err := b.ReadRaw(ctx, p)
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}
		parts = append(parts, content)
	}
	h.memory = strings.Join(parts, "\n\n")
	return nil
}

func (h *MemoryHook) ModifyRequest(ctx context.Context, msgs []agent.Message) ([]agent.Message, error) {
	if h.memory == "" {
		return msgs, nil
	}
	block := "<agent_memory>\n" + h.memory + "\n</agent_memory>"
	out := agent.CloneMessages(msgs)
	for i := range out {
		if out[i].Role == agent.RoleSystem {
			out[i].Content = out[i].Content + "\n\n" + block
			return out, nil
		}
	}
	return append([]agent.Message{agent.System(block)}, out...), nil
}
