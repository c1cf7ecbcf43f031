// Package checkpoint provides persistent CheckpointStore implementations:
// a JSON-file store for simple deployments and a BadgerDB store for
// embedded key-value persistence. The in-memory store lives in package
// agent next to the loop that uses it by default.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"deepagent/agent"
)

// FileStore persists one JSON file per thread under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// threadFile maps a thread ID to a safe file name. Thread IDs are caller
// supplied, so escape anything that could traverse directories.
func (s *FileStore) threadFile(threadID string) string {
	return filepath.Join(s.baseDir, url.PathEscape(threadID)+".json")
}

// Save writes the checkpoint, replacing any previous record for the thread.
func (s *FileStore) Save(cp *agent.Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	path := s.threadFile(cp.ThreadID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint for a thread, or nil if none exists.
func (s *FileStore) Load(threadID string) (*agent.Checkpoint, error) {
	data, err := os.ReadFile(s.threadFile(threadID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp agent.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes a thread's checkpoint. Deleting a missing thread is not
// an error.
func (s *FileStore) Delete(threadID string) error {
	err := os.Remove(s.threadFile(threadID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}
