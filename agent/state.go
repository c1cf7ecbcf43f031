package agent

import (
	"time"

	"deepagent/backend"
)

// Todo statuses. A todo is never deleted, only transitioned.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
	TodoCancelled  = "cancelled"
)

// ValidTodoStatus returns true if s is a known todo status.
func ValidTodoStatus(s string) bool {
	switch s {
	case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		return true
	}
	return false
}

// Todo is a planning entry tracked by the todo tool.
type Todo struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// AgentState holds the mutable shared state for one orchestration run.
// It is owned by exactly one run and passed by reference into tools and
// ephemeral backends for the run's duration.
type AgentState struct {
	ThreadID string                        `json:"thread_id"`
	Messages []Message                     `json:"messages"`
	Todos    []Todo                        `json:"todos,omitempty"`
	Files    map[string]backend.FileRecord `json:"files,omitempty"`

	// toolRegistry holds tools registered at runtime by hooks.
	// Not serialized; rebuilt on each run.
	toolRegistry *ToolRegistry

	// fileBackend is the run's default storage, created on first use.
	fileBackend backend.Backend

	// createdAt is the thread's original creation time, carried across
	// checkpoint saves.
	createdAt time.Time
}

// NewAgentState creates an empty state for a thread.
func NewAgentState(threadID string) *AgentState {
	return &AgentState{
		ThreadID: threadID,
		Messages: []Message{},
		Files:    make(map[string]backend.FileRecord),
	}
}

// FileBackend returns storage over this run's file map, created on first
// use. Hooks constructed without an explicit backend bind to it each run,
// so a resumed or reused Agent never writes into a previous run's state.
func (s *AgentState) FileBackend() backend.Backend {
	if s.fileBackend == nil {
		s.fileBackend = backend.NewState(s.Files)
	}
	return s.fileBackend
}

// CloneTodos returns a deep copy of the todo list.
func (s *AgentState) CloneTodos() []Todo {
	out := make([]Todo, len(s.Todos))
	copy(out, s.Todos)
	return out
}

// CloneFiles returns a deep copy of the file map.
func (s *AgentState) CloneFiles() map[string]backend.FileRecord {
	out := make(map[string]backend.FileRecord, len(s.Files))
	for path, rec := range s.Files {
		lines := make([]string, len(rec.Lines))
		copy(lines, rec.Lines)
		rec.Lines = lines
		out[path] = rec
	}
	return out
}

// CloneMessages returns a deep copy of the turn history.
func (s *AgentState) CloneMessages() []Message {
	return CloneMessages(s.Messages)
}

// CloneMessages deep-copies a message slice, including tool calls.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if len(out[i].ToolCalls) > 0 {
			tcs := make([]ToolCall, len(out[i].ToolCalls))
			copy(tcs, out[i].ToolCalls)
			out[i].ToolCalls = tcs
		}
	}
	return out
}
