// Package backend provides the pluggable storage contract for agent file
// operations: a uniform file-like CRUD/search surface over four strategies
// (in-memory state, host filesystem, key-value store, prefix routing).
//
// All variants share the same semantics: rooted paths, create-only writes,
// exact-match edits, regex grep, and deterministic glob ordering. Backends
// never own agent state: the in-memory variant holds a live reference to
// the run's file map, while persistent variants own their own storage.
package backend

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

// DefaultReadLimit is the number of lines Read returns when no limit is given.
const DefaultReadLimit = 2000

// FileInfo describes one listing entry. Directories are synthesized from
// path prefixes and are never stored directly.
type FileInfo struct {
	Path       string    `json:"path"`
	IsDir      bool      `json:"is_dir"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// WriteResult is returned by Write.
type WriteResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

// EditResult is returned by Edit.
type EditResult struct {
	Path        string `json:"path"`
	Occurrences int    `json:"occurrences"`
}

// GrepMatch is a single grep hit.
type GrepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Backend is the storage contract tools run against.
type Backend interface {
	// List returns the immediate children of path, non-recursive.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Read returns a line-numbered slice of the file. offset is a 0-based
	// line offset; an offset at or past the end of the file is an error,
	// not empty output. limit <= 0 means DefaultReadLimit lines.
	Read(ctx context.Context, p string, offset, limit int) (string, error)

	// ReadRaw returns the file content without line formatting. Used for
	// retrieving evicted tool results and memory files byte-exact.
	ReadRaw(ctx context.Context, p string) (string, error)

	// Write creates a new file. Writing to an existing path fails; edits
	// are the only content mutator.
	Write(ctx context.Context, p, content string) (*WriteResult, error)

	// Edit replaces oldText with newText. Exact match, no regex. Fails if
	// oldText is absent, or occurs more than once without replaceAll.
	Edit(ctx context.Context, p, oldText, newText string, replaceAll bool) (*EditResult, error)

	// Grep searches file contents under dir for a regex pattern, optionally
	// filtered by a shell glob on the file name. Invalid patterns fail
	// before any I/O.
	Grep(ctx context.Context, pattern, dir, glob string) ([]GrepMatch, error)

	// Glob returns paths under dir matching a shell-style pattern, sorted
	// lexicographically.
	Glob(ctx context.Context, pattern, dir string) ([]string, error)
}

// Config selects and parameterizes a backend variant at construction time.
type Config struct {
	Type      string `yaml:"type" json:"type"`           // "state", "disk", "kv", "composite"
	Root      string `yaml:"root" json:"root"`           // disk: host directory to root at
	Path      string `yaml:"path" json:"path"`           // kv: BadgerDB directory
	Namespace string `yaml:"namespace" json:"namespace"` // kv: key namespace
}

// cleanPath normalizes p to a rooted, cleaned virtual path.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// formatRead renders a cat -n style, line-numbered slice of content.
func formatRead(p, content string, offset, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	lines := strings.Split(content, "\n")
	if offset < 0 {
		return "", fmt.Errorf("invalid line offset %d", offset)
	}
	if offset >= len(lines) {
		return "", fmt.Errorf("line offset %d beyond end of file %s (%d lines)", offset, p, len(lines))
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}
	var sb strings.Builder
	for i := offset; i < end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

// replaceExact applies the edit semantics shared by every variant: exact
// match, ambiguous-replace guard, occurrence count.
func replaceExact(p, content, oldText, newText string, replaceAll bool) (string, int, error) {
	if oldText == "" {
		return "", 0, fmt.Errorf("old_text must not be empty")
	}
	n := strings.Count(content, oldText)
	if n == 0 {
		return "", 0, fmt.Errorf("old_text not found in %s", p)
	}
	if n > 1 && !replaceAll {
		return "", 0, fmt.Errorf("old_text appears %d times in %s; pass replace_all to replace every occurrence", n, p)
	}
	if replaceAll {
		return strings.ReplaceAll(content, oldText, newText), n, nil
	}
	return strings.Replace(content, oldText, newText, 1), 1, nil
}

// matchGlob reports whether the file at rel (relative, slash-separated)
// matches a shell glob. Patterns without a separator match the base name;
// patterns with separators match the relative path.
func matchGlob(pattern, rel string) bool {
	if pattern == "" {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(rel))
		return ok
	}
	ok, _ := path.Match(pattern, rel)
	return ok
}

// New constructs a backend from config. The routing composite is built in
// code via NewComposite, since it has no storage of its own to configure.
func New(cfg Config) (Backend, error) {
	switch cfg.Type {
	case "", "state":
		return nil, fmt.Errorf("state backend requires a live file map; use NewState")
	case "disk":
		return NewDisk(cfg.Root)
	case "kv":
		kv, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewKV(kv, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}
