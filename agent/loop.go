package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deepagent/backend"
	"deepagent/llm"
)

// runLoop is the orchestration core: restore, resolve any pending
// interrupt, repair the history, then step until the model stops calling
// tools or the step budget runs out. Tool calls within a step execute
// sequentially, so the event stream always reflects execution order.
func (a *Agent) runLoop(ctx context.Context, in RunInput) (*AgentState, error) {
	em := EmitterFromContext(ctx)

	state, step, pending, err := a.restore(ctx, in.ThreadID)
	if err != nil {
		return nil, err
	}

	// 1. BeforeAgent hooks (tool registration, memory loading)
	for _, hook := range a.hooks {
		if err := hook.BeforeAgent(ctx, state); err != nil {
			return nil, fmt.Errorf("hook %s BeforeAgent: %w", hook.Name(), err)
		}
	}

	registry := a.buildRegistry(state)
	toolSchemas := buildToolSchemas(registry, a.toolFilter)

	// 2. Resolve a pending interrupt before anything else. Without a
	// decision the thread stays paused.
	if pending != nil {
		if in.Decision == nil || in.Decision.ApprovalID != pending.ApprovalID {
			return state, &InterruptError{Interrupt: pending}
		}
		if err := a.resolveInterrupt(ctx, state, step, pending, in.Decision, registry); err != nil {
			return state, err
		}
	}

	// 3. Repair orphaned tool calls left by a crash mid-step, then accept
	// the new input.
	state.Messages = PatchToolCalls(state.Messages)
	state.Messages = append(state.Messages, in.Messages...)

	// 4. Step cycle
	modelCall := a.buildModelChain(toolSchemas)
	toolCall := a.buildToolCallChain(registry)

	for ; step < a.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		em.Emit(ctx, EventStepStart, "", map[string]any{"step": step})

		if a.summarizer != nil {
			state.Messages = a.summarizer.Compact(ctx, state.Messages)
		}

		// ModifyRequest hooks see a copy; only a hook returning a new
		// slice changes what the model sees, never the stored history.
		msgs := CloneMessages(state.Messages)
		for _, hook := range a.hooks {
			var err error
			msgs, err = hook.ModifyRequest(ctx, msgs)
			if err != nil {
				return state, fmt.Errorf("hook %s ModifyRequest: %w", hook.Name(), err)
			}
		}

		resp, err := modelCall(ctx, msgs)
		if err != nil {
			return state, fmt.Errorf("model call: %w", err)
		}

		calls := toToolCalls(resp.ToolCalls)
		state.Messages = append(state.Messages, AI(resp.Content, calls...))

		if len(calls) == 0 {
			em.Emit(ctx, EventStepFinish, "", map[string]any{"step": step})
			step++
			break
		}

		for _, tc := range calls {
			em.Emit(ctx, EventToolCall, tc.Name, map[string]any{
				"tool_call_id": tc.ID, "args": tc.Args,
			})
			result, err := toolCall(ctx, tc)
			if err != nil {
				var ie *InterruptError
				if errors.As(err, &ie) {
					// Pause: persist the thread with the interrupt so a
					// later run can resolve it. Sibling calls that never
					// ran are repaired on resume.
					if serr := a.save(ctx, state, step, ie.Interrupt); serr != nil {
						return state, serr
					}
					return state, ie
				}
				result = &ToolResult{
					ToolCallID: tc.ID,
					Name:       tc.Name,
					Error:      err.Error(),
					Output:     "Error: " + err.Error(),
				}
			}
			em.Emit(ctx, EventToolResult, tc.Name, map[string]any{
				"tool_call_id": result.ToolCallID, "output": result.Output,
			})
			state.Messages = append(state.Messages, ToolMsg(result.ToolCallID, result.Name, result.Output))
		}

		em.Emit(ctx, EventStepFinish, "", map[string]any{"step": step})
		if err := a.save(ctx, state, step+1, nil); err != nil {
			return state, err
		}
	}

	if err := a.save(ctx, state, step, nil); err != nil {
		return state, err
	}
	return state, nil
}

// restore loads the thread's checkpoint, or creates fresh state.
func (a *Agent) restore(ctx context.Context, threadID string) (*AgentState, int, *Interrupt, error) {
	state := NewAgentState(threadID)
	if a.sharedFiles != nil {
		state.Files = a.sharedFiles
	}
	if a.store == nil {
		return state, 0, nil, nil
	}
	cp, err := a.store.Load(threadID)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}
	if cp == nil {
		return state, 0, nil, nil
	}
	state.Messages = CloneMessages(cp.Messages)
	state.Todos = append([]Todo(nil), cp.Todos...)
	state.createdAt = cp.CreatedAt
	if cp.Files != nil {
		state.Files = make(map[string]backend.FileRecord, len(cp.Files))
		for p, rec := range cp.Files {
			state.Files[p] = rec
		}
	}
	EmitterFromContext(ctx).Emit(ctx, EventCheckpointLoaded, "", map[string]any{
		"step": cp.Step, "messages": len(cp.Messages),
	})
	return state, cp.Step, cp.Interrupt, nil
}

// save persists the thread snapshot. Without a store it is a no-op.
func (a *Agent) save(ctx context.Context, state *AgentState, step int, pending *Interrupt) error {
	if a.store == nil {
		return nil
	}
	now := time.Now()
	if state.createdAt.IsZero() {
		state.createdAt = now
	}
	cp := &Checkpoint{
		ThreadID:  state.ThreadID,
		Step:      step,
		Messages:  state.CloneMessages(),
		Todos:     state.CloneTodos(),
		Files:     state.CloneFiles(),
		Interrupt: pending,
		CreatedAt: state.createdAt,
		UpdatedAt: now,
	}
	if err := a.store.Save(cp); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", state.ThreadID, err)
	}
	EmitterFromContext(ctx).Emit(ctx, EventCheckpointSaved, "", map[string]any{
		"step": step, "interrupted": pending != nil,
	})
	return nil
}

// resolveInterrupt applies a decision to a paused tool call. Approval
// replays the call through the tool chain (gates recognize the grant);
// denial synthesizes a result without ever invoking the tool.
func (a *Agent) resolveInterrupt(ctx context.Context, state *AgentState, step int, pending *Interrupt, d *Decision, registry *ToolRegistry) error {
	em := EmitterFromContext(ctx)
	em.Emit(ctx, EventApprovalResolved, pending.ToolName, map[string]any{
		"approval_id": pending.ApprovalID,
		"approved":    d.Approved,
		"reason":      d.Reason,
	})

	output := DeniedResult(pending.ToolName, d.Reason)
	if d.Approved {
		callCtx := WithApprovedToolCall(ctx, pending.ToolCallID)
		result, err := a.buildToolCallChain(registry)(callCtx, ToolCall{
			ID:   pending.ToolCallID,
			Name: pending.ToolName,
			Args: pending.Args,
		})
		if err != nil {
			return fmt.Errorf("resume tool %s: %w", pending.ToolName, err)
		}
		output = result.Output
	}
	state.Messages = append(state.Messages, ToolMsg(pending.ToolCallID, pending.ToolName, output))
	return a.save(ctx, state, step, nil)
}

// buildRegistry merges statically configured tools with tools hooks
// registered on the run state.
func (a *Agent) buildRegistry(state *AgentState) *ToolRegistry {
	registry := NewToolRegistry()
	for _, t := range a.tools {
		registry.Register(t)
	}
	for _, t := range StateTools(state) {
		registry.Register(t)
	}
	return registry
}

func (a *Agent) executeTool(ctx context.Context, tc ToolCall, registry *ToolRegistry) ToolResult {
	tool := registry.Get(tc.Name)
	if tool == nil || (a.toolFilter != nil && !a.toolFilter[tc.Name]) {
		return ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Error:      fmt.Sprintf("unknown tool: %s", tc.Name),
			Output:     fmt.Sprintf("Error: tool %q not found", tc.Name),
		}
	}
	output, err := tool.Execute(ctx, tc.Args)
	if err != nil {
		return ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Error:      err.Error(),
			Output:     "Error: " + err.Error(),
		}
	}
	return ToolResult{ToolCallID: tc.ID, Name: tc.Name, Output: output}
}

// ModelCallFunc is the outermost type of the model call chain.
type ModelCallFunc func(ctx context.Context, msgs []Message) (*llm.Response, error)

// buildModelChain wraps the streaming model call with every WrapModelCall
// hook, first hook outermost.
func (a *Agent) buildModelChain(toolSchemas []llm.ToolSchema) ModelCallFunc {
	base := func(ctx context.Context, msgs []Message) (*llm.Response, error) {
		req := llm.Request{
			Model:        a.cfg.Model,
			Messages:     convertMessages(msgs),
			Tools:        toolSchemas,
			SystemPrompt: a.cfg.SystemPrompt,
		}

		em := EmitterFromContext(ctx)
		chunkCh := make(chan llm.StreamChunk, 64)
		var streamErr error
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			streamErr = a.llm.Stream(ctx, req, chunkCh)
		}()

		var content string
		var toolCalls []llm.ToolCallResult
		for chunk := range chunkCh {
			if chunk.Error != nil {
				wg.Wait()
				return nil, chunk.Error
			}
			if chunk.Delta != "" {
				content += chunk.Delta
				em.Emit(ctx, EventText, a.cfg.Model, map[string]any{"text": chunk.Delta})
			}
			if chunk.ToolCall != nil {
				toolCalls = append(toolCalls, *chunk.ToolCall)
			}
		}
		wg.Wait()
		if streamErr != nil {
			return nil, streamErr
		}
		return &llm.Response{Content: content, ToolCalls: toolCalls}, nil
	}

	fn := ModelCallFunc(base)
	for i := len(a.hooks) - 1; i >= 0; i-- {
		hook := a.hooks[i]
		next := fn
		fn = func(ctx context.Context, msgs []Message) (*llm.Response, error) {
			return hook.WrapModelCall(ctx, msgs, ModelCallWrapFunc(next))
		}
	}
	return fn
}

// buildToolCallChain wraps executeTool with every WrapToolCall hook,
// first hook outermost.
func (a *Agent) buildToolCallChain(registry *ToolRegistry) ToolCallFunc {
	base := func(ctx context.Context, tc ToolCall) (*ToolResult, error) {
		r := a.executeTool(ctx, tc, registry)
		return &r, nil
	}
	fn := ToolCallFunc(base)
	for i := len(a.hooks) - 1; i >= 0; i-- {
		hook := a.hooks[i]
		next := fn
		fn = func(ctx context.Context, tc ToolCall) (*ToolResult, error) {
			return hook.WrapToolCall(ctx, tc, next)
		}
	}
	return fn
}

func toToolCalls(results []llm.ToolCallResult) []ToolCall {
	out := make([]ToolCall, len(results))
	for i, tc := range results {
		out[i] = ToolCall{ID: tc.ID, Name: tc.Name, Args: tc.Args}
	}
	return out
}

func convertMessages(msgs []Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			out[i].ToolCalls = append(out[i].ToolCalls, llm.ToolCallInfo{
				ID:   tc.ID,
				Name: tc.Name,
				Args: tc.Args,
			})
		}
	}
	return out
}

func buildToolSchemas(registry *ToolRegistry, filter map[string]bool) []llm.ToolSchema {
	all := registry.All()
	schemas := make([]llm.ToolSchema, 0, len(all))
	for name, t := range all {
		if filter != nil && !filter[name] {
			continue
		}
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return schemas
}
