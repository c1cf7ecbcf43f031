package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"deepagent/agent"
)

const threadPrefix = "thread:"

// BadgerStore persists checkpoints in an embedded BadgerDB, one record per
// thread under a "thread:" key prefix.
type BadgerStore struct {
	db    *badger.DB
	owned bool
}

// NewBadgerStore opens (or creates) a BadgerDB at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required for the badger checkpoint store")
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStoreDB wraps an already-open BadgerDB, for callers sharing one
// DB between checkpoints and the KV file backend. Close becomes a no-op.
func NewBadgerStoreDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Save writes the checkpoint, replacing any previous record for the thread.
func (s *BadgerStore) Save(cp *agent.Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(threadPrefix+cp.ThreadID), data)
	})
	if err != nil {
		return fmt.Errorf("store checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint for a thread, or nil if none exists.
func (s *BadgerStore) Load(threadID string) (*agent.Checkpoint, error) {
	var cp *agent.Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(threadPrefix + threadID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cp = &agent.Checkpoint{}
			return json.Unmarshal(val, cp)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp, nil
}

// Delete removes a thread's checkpoint.
func (s *BadgerStore) Delete(threadID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(threadPrefix + threadID))
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying DB if this store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
