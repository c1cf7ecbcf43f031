package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepagent/agent"
)

// TodoListHook registers the write_todos planning tool. Each call replaces
// the entire todo list on the run state. Status rules are advisory: the
// tool reports anomalies back to the model instead of rejecting them.
type TodoListHook struct {
	agent.BaseHook
}

// NewTodoListHook creates a todo-list hook.
func NewTodoListHook() *TodoListHook { return &TodoListHook{} }

func (h *TodoListHook) Name() string { return "todolist" }

func (h *TodoListHook) BeforeAgent(ctx context.Context, state *agent.AgentState) error {
	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "write_todos",
		ToolDesc: "Replace the task list. Pass the complete list each time; omitted items are removed. Keep at most one item in_progress.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todos": map[string]any{
					"type":        "array",
					"description": "The full task list",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":      map[string]any{"type": "string"},
							"content": map[string]any{"type": "string"},
							"status":  map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "cancelled"}},
						},
						"required": []string{"content", "status"},
					},
				},
			},
			"required": []string{"todos"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			raw, err := json.Marshal(args["todos"])
			if err != nil {
				return "Error: invalid todos payload: " + err.Error(), nil
			}
			var todos []agent.Todo
			if err := json.Unmarshal(raw, &todos); err != nil {
				return "Error: invalid todos payload: " + err.Error(), nil
			}
			inProgress := 0
			for i, t := range todos {
				if t.Content == "" {
					return fmt.Sprintf("Error: todo %d has empty content", i), nil
				}
				if !agent.ValidTodoStatus(t.Status) {
					return fmt.Sprintf("Error: todo %d has unknown status %q", i, t.Status), nil
				}
				if t.Status == agent.TodoInProgress {
					inProgress++
				}
				if t.ID == "" {
					todos[i].ID = fmt.Sprintf("todo-%d", i+1)
				}
			}
			state.Todos = todos
			agent.EmitterFromContext(ctx).Emit(ctx, agent.EventTodosChanged, "write_todos", map[string]any{
				"count": len(todos),
			})
			var sb strings.Builder
			fmt.Fprintf(&sb, "Updated todo list (%d items)", len(todos))
			if inProgress > 1 {
				fmt.Fprintf(&sb, "\nNote: %d items are in_progress; keep at most one task in progress at a time", inProgress)
			}
			return sb.String(), nil
		},
	})
	return nil
}
