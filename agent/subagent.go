package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"deepagent/backend"
	"deepagent/llm"
)

// generalPurposeAgent is the built-in subagent available without config.
const generalPurposeAgent = "general-purpose"

// SubAgentManager registers the task tool, which runs a named subagent on
// an isolated conversation. Subagents share the parent's hooks and the
// parent run's file map, but never the parent's message history or todos.
// Only the subagent's final text returns to the caller.
type SubAgentManager struct {
	BaseHook
	client  llm.Client
	parent  Config
	hooks   []Hook
	configs map[string]SubAgentConfig
}

// NewSubAgentManager creates the manager. hooks are installed on every
// subagent run; pass the parent's hook set for shared filesystem access.
func NewSubAgentManager(client llm.Client, parent Config, hooks []Hook) *SubAgentManager {
	configs := make(map[string]SubAgentConfig, len(parent.SubAgents)+1)
	configs[generalPurposeAgent] = SubAgentConfig{
		Name:         generalPurposeAgent,
		Description:  "General agent for open-ended multi-step tasks",
		SystemPrompt: parent.SystemPrompt,
		Model:        parent.Model,
		MaxSteps:     parent.MaxSteps,
	}
	for _, sa := range parent.SubAgents {
		configs[sa.Name] = sa
	}
	return &SubAgentManager{client: client, parent: parent, hooks: hooks, configs: configs}
}

func (m *SubAgentManager) Name() string { return "subagents" }

func (m *SubAgentManager) BeforeAgent(ctx context.Context, state *AgentState) error {
	RegisterToolOnState(state, &FuncTool{
		ToolName: "task",
		ToolDesc: m.describe(),
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"subagent_type": map[string]any{"type": "string", "description": "Which subagent to run"},
				"description":   map[string]any{"type": "string", "description": "The complete task, with all context the subagent needs"},
			},
			"required": []string{"subagent_type", "description"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			name, _ := args["subagent_type"].(string)
			task, _ := args["description"].(string)
			cfg, ok := m.configs[name]
			if !ok {
				return fmt.Sprintf("Error: unknown subagent %q", name), nil
			}
			if task == "" {
				return "Error: description is required", nil
			}
			return m.run(ctx, cfg, task, state.Files)
		},
	})
	return nil
}

// run executes one subagent task on fresh state over the parent's files.
// The parent's emitter stays in ctx, so subagent events interleave into
// the same ordered stream.
func (m *SubAgentManager) run(ctx context.Context, cfg SubAgentConfig, task string, files map[string]backend.FileRecord) (string, error) {
	runID := uuid.NewString()
	em := EmitterFromContext(ctx)
	em.Emit(ctx, EventSubagentStart, cfg.Name, map[string]any{
		"run_id": runID, "task": task,
	})

	child := &Agent{
		cfg: Config{
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
			MaxSteps:     cfg.MaxSteps,
		},
		llm:         m.client,
		hooks:       m.hooks,
		sharedFiles: files,
	}
	if len(cfg.Tools) > 0 {
		child.toolFilter = make(map[string]bool, len(cfg.Tools))
		for _, t := range cfg.Tools {
			child.toolFilter[t] = true
		}
	}

	state, err := child.runLoop(ctx, RunInput{
		ThreadID: runID,
		Messages: []Message{Human(task)},
	})
	if err != nil {
		em.Emit(ctx, EventSubagentFinish, cfg.Name, map[string]any{
			"run_id": runID, "error": err.Error(),
		})
		return "Error: subagent " + cfg.Name + " failed: " + err.Error(), nil
	}

	final := FinalText(state.Messages)
	em.Emit(ctx, EventSubagentFinish, cfg.Name, map[string]any{
		"run_id": runID, "final_text": final,
	})
	if final == "" {
		return "Subagent " + cfg.Name + " finished without a final message", nil
	}
	return final, nil
}

func (m *SubAgentManager) describe() string {
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Delegate a task to a subagent running on its own conversation. The subagent only knows what you put in the description; it returns a single final report. Available subagents:\n")
	for _, name := range names {
		cfg := m.configs[name]
		fmt.Fprintf(&sb, "- %s: %s\n", cfg.Name, cfg.Description)
	}
	return sb.String()
}
