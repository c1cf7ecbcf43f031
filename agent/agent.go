package agent

import (
	"context"

	"github.com/google/uuid"

	"deepagent/backend"
	"deepagent/llm"
)

// Agent is a configured orchestrator instance ready to run threads.
type Agent struct {
	cfg        Config
	llm        llm.Client
	hooks      []Hook
	tools      []Tool
	store      CheckpointStore
	summarizer *Summarizer

	// toolFilter restricts which tools the model sees. nil = all.
	// Set for subagents configured with an explicit tool list.
	toolFilter map[string]bool

	// sharedFiles, when set, replaces the run's file map. Set for
	// subagents so parent and child operate on the same files while
	// keeping separate histories and todos.
	sharedFiles map[string]backend.FileRecord
}

// Option configures an Agent.
type Option func(*Agent)

// WithHooks appends middleware hooks. Order matters: the first hook is the
// outermost ring around model and tool calls.
func WithHooks(hooks ...Hook) Option {
	return func(a *Agent) { a.hooks = append(a.hooks, hooks...) }
}

// WithTools adds statically registered tools.
func WithTools(tools ...Tool) Option {
	return func(a *Agent) { a.tools = append(a.tools, tools...) }
}

// WithCheckpointStore enables checkpoint persistence. Without a store, runs
// are not resumable and approval gates require a synchronous approver.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(a *Agent) { a.store = store }
}

// WithSummarizer enables history compaction.
func WithSummarizer(s *Summarizer) Option {
	return func(a *Agent) { a.summarizer = s }
}

// New creates an agent from a config and a model client.
func New(cfg Config, client llm.Client, opts ...Option) *Agent {
	a := &Agent{cfg: cfg, llm: client}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Decision resolves an interrupt from a previous run of the same thread.
type Decision struct {
	ApprovalID string `json:"approval_id"`
	Approved   bool   `json:"approved"`
	Reason     string `json:"reason,omitempty"`
}

// RunInput carries one invocation of a thread. A non-empty Decision is
// consumed before any new messages are processed.
type RunInput struct {
	ThreadID string
	Messages []Message
	Decision *Decision
}

// Run executes the agent synchronously and returns the final state. A
// pending approval gate surfaces as *InterruptError; resolve it by running
// the same thread again with a Decision.
func (a *Agent) Run(ctx context.Context, in RunInput) (*AgentState, error) {
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}
	return a.runLoop(WithEmitter(ctx, nil), in)
}

// RunStream executes the agent and streams ordered events to eventCh. The
// channel is closed when the run finishes, pauses on an approval gate, or
// fails; the caller must drain it. Context cancellation ends the stream
// without an error event.
func (a *Agent) RunStream(ctx context.Context, in RunInput, eventCh chan<- Event) (*AgentState, error) {
	defer close(eventCh)
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}

	em := NewEmitter(eventCh, in.ThreadID)
	state, err := a.runLoop(WithEmitter(ctx, em), in)
	switch {
	case err == nil:
		em.Emit(ctx, EventDone, "", map[string]any{
			"status":     "completed",
			"final_text": FinalText(state.Messages),
			"messages":   len(state.Messages),
			"files":      len(state.Files),
		})
	case ctx.Err() != nil:
		// Cancelled: the stream just ends.
	default:
		if ie, ok := err.(*InterruptError); ok {
			em.Emit(ctx, EventDone, "", map[string]any{
				"status":      "paused",
				"approval_id": ie.Interrupt.ApprovalID,
				"tool_name":   ie.Interrupt.ToolName,
			})
			return state, err
		}
		em.Emit(ctx, EventError, "", map[string]any{"error": err.Error()})
	}
	return state, err
}

// approvedKey marks a tool call ID whose approval has already been granted,
// so gating hooks let the replayed call through on resume.
type approvedKey struct{}

// WithApprovedToolCall marks toolCallID as approved in the context.
func WithApprovedToolCall(ctx context.Context, toolCallID string) context.Context {
	return context.WithValue(ctx, approvedKey{}, toolCallID)
}

// ApprovedToolCall returns the pre-approved tool call ID, if any.
func ApprovedToolCall(ctx context.Context) string {
	id, _ := ctx.Value(approvedKey{}).(string)
	return id
}
