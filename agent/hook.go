package agent

import (
	"context"

	"deepagent/llm"
)

// ModelCallWrapFunc is the "next" function in the model call chain.
type ModelCallWrapFunc func(ctx context.Context, msgs []Message) (*llm.Response, error)

// ToolCallFunc is the "next" function in the tool call chain.
type ToolCallFunc func(ctx context.Context, call ToolCall) (*ToolResult, error)

// Hook is the middleware interface for the orchestration loop (onion ring
// pattern). Approval gating, result eviction, todo tracking, and filesystem
// tools are all hooks; each stage is independently testable.
type Hook interface {
	// Name returns the hook identifier.
	Name() string

	// BeforeAgent is called once before the step cycle starts. Use for
	// one-time setup: registering tools, loading memory files.
	BeforeAgent(ctx context.Context, state *AgentState) error

	// ModifyRequest is called before each model call to adjust the
	// message list (system prompt injection).
	ModifyRequest(ctx context.Context, msgs []Message) ([]Message, error)

	// WrapModelCall wraps each model call.
	WrapModelCall(ctx context.Context, msgs []Message, next ModelCallWrapFunc) (*llm.Response, error)

	// WrapToolCall wraps each tool execution (approval gates, eviction).
	WrapToolCall(ctx context.Context, call ToolCall, next ToolCallFunc) (*ToolResult, error)
}

// BaseHook provides no-op defaults for all hook methods.
// Embed this to only override the methods you need.
type BaseHook struct{}

func (BaseHook) Name() string { return "base" }

func (BaseHook) BeforeAgent(ctx context.Context, state *AgentState) error {
	return nil
}

func (BaseHook) ModifyRequest(ctx context.Context, msgs []Message) ([]Message, error) {
	return msgs, nil
}

func (BaseHook) WrapModelCall(ctx context.Context, msgs []Message, next ModelCallWrapFunc) (*llm.Response, error) {
	return next(ctx, msgs)
}

func (BaseHook) WrapToolCall(ctx context.Context, call ToolCall, next ToolCallFunc) (*ToolResult, error) {
	return next(ctx, call)
}
