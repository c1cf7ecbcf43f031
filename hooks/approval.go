package hooks

import (
	"context"

	"github.com/google/uuid"

	"deepagent/agent"
)

// GatePredicate decides whether a specific call to a gated tool needs
// approval. A nil predicate gates every call to the tool.
type GatePredicate func(args map[string]any) bool

// Approver resolves an approval request synchronously. When no approver is
// set, a gated call pauses the run instead.
type Approver func(ctx context.Context, in agent.Interrupt) (approved bool, reason string)

// ApprovalHook gates tool calls by name. A gated call either gets a
// synchronous decision from the approver or pauses the run with an
// InterruptError carrying the pending call. Denial fails closed: the tool
// is never invoked and the model sees a denial result.
type ApprovalHook struct {
	agent.BaseHook
	gates    map[string]GatePredicate
	approver Approver
}

// NewApprovalHook creates an approval hook gating the named tools.
func NewApprovalHook(toolNames []string, approver Approver) *ApprovalHook {
	gates := make(map[string]GatePredicate, len(toolNames))
	for _, name := range toolNames {
		gates[name] = nil
	}
	return &ApprovalHook{gates: gates, approver: approver}
}

// Gate adds or replaces a gate with a per-call predicate.
func (h *ApprovalHook) Gate(toolName string, pred GatePredicate) {
	h.gates[toolName] = pred
}

func (h *ApprovalHook) Name() string { return "approval" }

func (h *ApprovalHook) WrapToolCall(ctx context.Context, call agent.ToolCall, next agent.ToolCallFunc) (*agent.ToolResult, error) {
	pred, gated := h.gates[call.Name]
	if !gated || (pred != nil && !pred(call.Args)) {
		return next(ctx, call)
	}
	// A resumed call whose approval was already granted passes straight
	// through; gating it again would deadlock the resume.
	if call.ID != "" && agent.ApprovedToolCall(ctx) == call.ID {
		return next(ctx, call)
	}

	in := agent.Interrupt{
		ApprovalID: uuid.NewString(),
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Args:       call.Args,
	}
	em := agent.EmitterFromContext(ctx)
	em.Emit(ctx, agent.EventApprovalRequested, call.Name, map[string]any{
		"approval_id":  in.ApprovalID,
		"tool_call_id": in.ToolCallID,
		"args":         in.Args,
	})

	if h.approver == nil {
		return nil, &agent.InterruptError{Interrupt: &in}
	}

	approved, reason := h.approver(ctx, in)
	em.Emit(ctx, agent.EventApprovalResolved, call.Name, map[string]any{
		"approval_id": in.ApprovalID,
		"approved":    approved,
		"reason":      reason,
	})
	if !approved {
		return &agent.ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Output:     agent.DeniedResult(call.Name, reason),
		}, nil
	}
	return next(ctx, call)
}
