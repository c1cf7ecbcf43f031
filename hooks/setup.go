package hooks

import (
	"deepagent/agent"
	"deepagent/backend"
)

// Default builds the standard hook stack from an agent config: approval
// gates (outermost, from interrupt_on), result eviction, memory injection,
// the todo tool, and the filesystem tools over b. A nil backend means every
// layer runs against the run's in-state files.
func Default(cfg agent.Config, b backend.Backend, approver Approver) []agent.Hook {
	stack := []agent.Hook{}
	if len(cfg.InterruptOn) > 0 {
		stack = append(stack, NewApprovalHook(cfg.InterruptOn, approver))
	}
	if cfg.EvictionThreshold > 0 {
		stack = append(stack, NewEvictionHook(b, cfg.EvictionThreshold))
	}
	stack = append(stack,
		NewMemoryHook(b),
		NewTodoListHook(),
		NewFilesystemHook(b),
	)
	return stack
}
