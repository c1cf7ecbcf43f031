package agent

import (
	"sync"
	"time"

	"deepagent/backend"
)

// Interrupt is a tool call paused awaiting an approval decision. It exists
// from the moment a gated tool is about to run until a decision resolves
// it, and must survive a checkpoint save/restore cycle intact.
type Interrupt struct {
	ApprovalID string         `json:"approval_id"`
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Args       map[string]any `json:"args,omitempty"`
}

// InterruptError signals that a run paused on an approval gate with no
// approver supplied. The caller resolves it on the next run of the same
// thread via WithDecision.
type InterruptError struct {
	Interrupt *Interrupt
}

func (e *InterruptError) Error() string {
	return "run interrupted: tool " + e.Interrupt.ToolName + " awaiting approval " + e.Interrupt.ApprovalID
}

// Checkpoint is the persisted snapshot of one run: thread identity, step
// cursor, full turn history, state, and any pending interrupt. One record
// per thread; each save overwrites the previous one.
type Checkpoint struct {
	ThreadID  string                        `json:"thread_id"`
	Step      int                           `json:"step"`
	Messages  []Message                     `json:"messages"`
	Todos     []Todo                        `json:"todos,omitempty"`
	Files     map[string]backend.FileRecord `json:"files,omitempty"`
	Interrupt *Interrupt                    `json:"interrupt,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// CheckpointStore persists checkpoints keyed by thread ID. Load returns
// (nil, nil) for an unknown thread.
type CheckpointStore interface {
	Save(cp *Checkpoint) error
	Load(threadID string) (*Checkpoint, error)
	Delete(threadID string) error
}

const defaultCheckpointTTL = 1 * time.Hour

type checkpointEntry struct {
	cp         *Checkpoint
	lastAccess time.Time
}

// MemoryCheckpointStore is an in-memory checkpoint store with TTL-based
// eviction. Suitable for single-process use; state dies with the process.
type MemoryCheckpointStore struct {
	mu      sync.RWMutex
	entries map[string]*checkpointEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCheckpointStore creates a store with the default TTL and starts
// background eviction.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	s := &MemoryCheckpointStore{
		entries: make(map[string]*checkpointEntry),
		ttl:     defaultCheckpointTTL,
		stop:    make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Save stores a deep copy of the checkpoint and refreshes its TTL.
func (s *MemoryCheckpointStore) Save(cp *Checkpoint) error {
	snap := *cp
	snap.Messages = CloneMessages(cp.Messages)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cp.ThreadID] = &checkpointEntry{cp: &snap, lastAccess: time.Now()}
	return nil
}

// Load returns the checkpoint for a thread, or nil if absent.
func (s *MemoryCheckpointStore) Load(threadID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[threadID]
	if !ok {
		return nil, nil
	}
	entry.lastAccess = time.Now()
	return entry.cp, nil
}

// Delete removes a thread's checkpoint.
func (s *MemoryCheckpointStore) Delete(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, threadID)
	return nil
}

// Len returns the number of stored checkpoints.
func (s *MemoryCheckpointStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the eviction goroutine.
func (s *MemoryCheckpointStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryCheckpointStore) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evict()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryCheckpointStore) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.ttl)
	for id, entry := range s.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}
