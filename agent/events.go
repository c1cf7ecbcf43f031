package agent

import (
	"context"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

// Event kinds, in the vocabulary consumers see. The stream for one run is
// an append-only log: consumers may rely on kinds never being reordered
// relative to actual execution.
const (
	EventText              EventKind = "text"
	EventStepStart         EventKind = "step_start"
	EventStepFinish        EventKind = "step_finish"
	EventToolCall          EventKind = "tool_call"
	EventToolResult        EventKind = "tool_result"
	EventTodosChanged      EventKind = "todos_changed"
	EventFileWriteStart    EventKind = "file_write_start"
	EventFileWritten       EventKind = "file_written"
	EventFileEdited        EventKind = "file_edited"
	EventFileRead          EventKind = "file_read"
	EventLs                EventKind = "ls"
	EventGlob              EventKind = "glob"
	EventGrep              EventKind = "grep"
	EventSubagentStart     EventKind = "subagent_start"
	EventSubagentFinish    EventKind = "subagent_finish"
	EventApprovalRequested EventKind = "approval_requested"
	EventApprovalResolved  EventKind = "approval_resolved"
	EventCheckpointSaved   EventKind = "checkpoint_saved"
	EventCheckpointLoaded  EventKind = "checkpoint_loaded"
	EventDone              EventKind = "done"
	EventError             EventKind = "error"
)

// Event is one observable unit of run progress.
type Event struct {
	Kind      EventKind      `json:"event"`
	Seq       uint64         `json:"seq"`
	Name      string         `json:"name,omitempty"` // tool or subagent name
	ThreadID  string         `json:"thread_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Emitter delivers ordered events for a single run. All emits happen on the
// run's single goroutine, so sequence numbers and channel order both follow
// actual execution order. The sequence counter is run-scoped, never global.
type Emitter struct {
	ch       chan<- Event
	threadID string
	seq      uint64
}

// NewEmitter creates an emitter writing to ch. ch may be nil, in which case
// every emit is a no-op (used by the synchronous Run entry point).
func NewEmitter(ch chan<- Event, threadID string) *Emitter {
	return &Emitter{ch: ch, threadID: threadID}
}

// Emit sends one event. Blocks until the consumer accepts it or ctx is
// cancelled; a cancelled emit is dropped, never reordered.
func (e *Emitter) Emit(ctx context.Context, kind EventKind, name string, data map[string]any) {
	if e == nil || e.ch == nil {
		return
	}
	e.seq++
	ev := Event{
		Kind:      kind,
		Seq:       e.seq,
		Name:      name,
		ThreadID:  e.threadID,
		Timestamp: time.Now(),
		Data:      data,
	}
	select {
	case e.ch <- ev:
	case <-ctx.Done():
	}
}

type emitterKey struct{}

// WithEmitter returns a context carrying the run's emitter, so tools and
// hooks can report progress without threading a channel through every call.
func WithEmitter(ctx context.Context, e *Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

// EmitterFromContext returns the run emitter or nil. The nil emitter is
// safe to call.
func EmitterFromContext(ctx context.Context) *Emitter {
	e, _ := ctx.Value(emitterKey{}).(*Emitter)
	return e
}
