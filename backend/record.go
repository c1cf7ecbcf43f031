package backend

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// FileRecord is the content of one virtual file, identified by its path.
// Files are create-once: content changes only through edits.
type FileRecord struct {
	Lines      []string  `json:"lines"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewFileRecord builds a record from raw content.
func NewFileRecord(content string, now time.Time) FileRecord {
	return FileRecord{
		Lines:      strings.Split(content, "\n"),
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Content reassembles the file's raw content.
func (f FileRecord) Content() string {
	return strings.Join(f.Lines, "\n")
}

// Size returns the content length in bytes.
func (f FileRecord) Size() int64 {
	n := int64(0)
	for _, l := range f.Lines {
		n += int64(len(l))
	}
	if len(f.Lines) > 1 {
		n += int64(len(f.Lines) - 1) // newlines
	}
	return n
}

// recordStore is the minimal surface the virtual (non-filesystem) variants
// implement: flat path → FileRecord storage. Directory structure is
// synthesized from the path set, never stored.
type recordStore interface {
	get(p string) (FileRecord, bool, error)
	put(p string, rec FileRecord) error
	paths() ([]string, error)
}

// virtual implements the full Backend contract over a recordStore. The
// state and key-value variants differ only in where records live.
type virtual struct {
	store recordStore
}

func (v *virtual) List(_ context.Context, dir string) ([]FileInfo, error) {
	dir = cleanPath(dir)
	all, err := v.store.paths()
	if err != nil {
		return nil, err
	}

	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	files := make(map[string]FileRecord)
	dirs := make(map[string]bool)
	for _, p := range all {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			dirs[prefix+rest[:i]] = true
			continue
		}
		rec, ok, err := v.store.get(p)
		if err != nil {
			return nil, err
		}
		if ok {
			files[p] = rec
		}
	}

	out := make([]FileInfo, 0, len(files)+len(dirs))
	for p := range dirs {
		out = append(out, FileInfo{Path: p, IsDir: true})
	}
	for p, rec := range files {
		out = append(out, FileInfo{Path: p, Size: rec.Size(), ModifiedAt: rec.ModifiedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (v *virtual) Read(_ context.Context, p string, offset, limit int) (string, error) {
	p = cleanPath(p)
	rec, ok, err := v.store.get(p)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("file not found: %s", p)
	}
	return formatRead(p, rec.Content(), offset, limit)
}

func (v *virtual) ReadRaw(_ context.Context, p string) (string, error) {
	p = cleanPath(p)
	rec, ok, err := v.store.get(p)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("file not found: %s", p)
	}
	return rec.Content(), nil
}

func (v *virtual) Write(_ context.Context, p, content string) (*WriteResult, error) {
	p = cleanPath(p)
	_, ok, err := v.store.get(p)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("file already exists: %s", p)
	}
	if err := v.store.put(p, NewFileRecord(content, time.Now())); err != nil {
		return nil, err
	}
	return &WriteResult{Path: p, BytesWritten: len(content)}, nil
}

func (v *virtual) Edit(_ context.Context, p, oldText, newText string, replaceAll bool) (*EditResult, error) {
	p = cleanPath(p)
	rec, ok, err := v.store.get(p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("file not found: %s", p)
	}
	updated, n, err := replaceExact(p, rec.Content(), oldText, newText, replaceAll)
	if err != nil {
		return nil, err
	}
	rec.Lines = strings.Split(updated, "\n")
	rec.ModifiedAt = time.Now()
	if err := v.store.put(p, rec); err != nil {
		return nil, err
	}
	return &EditResult{Path: p, Occurrences: n}, nil
}

func (v *virtual) Grep(_ context.Context, pattern, dir, glob string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %v", err)
	}
	paths, err := v.pathsUnder(dir)
	if err != nil {
		return nil, err
	}

	matches := []GrepMatch{}
	for _, pr := range paths {
		if !matchGlob(glob, pr.rel) {
			continue
		}
		rec, ok, err := v.store.get(pr.full)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for i, line := range rec.Lines {
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{Path: pr.full, Line: i + 1, Text: line})
			}
		}
	}
	return matches, nil
}

func (v *virtual) Glob(_ context.Context, pattern, dir string) ([]string, error) {
	paths, err := v.pathsUnder(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, pr := range paths {
		if matchGlob(pattern, pr.rel) {
			out = append(out, pr.full)
		}
	}
	return out, nil
}

type relPath struct {
	full string
	rel  string
}

// pathsUnder returns all stored paths under dir, sorted, with their
// dir-relative form for glob matching.
func (v *virtual) pathsUnder(dir string) ([]relPath, error) {
	dir = cleanPath(dir)
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	all, err := v.store.paths()
	if err != nil {
		return nil, err
	}
	sort.Strings(all)
	out := make([]relPath, 0, len(all))
	for _, p := range all {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		out = append(out, relPath{full: p, rel: strings.TrimPrefix(p, prefix)})
	}
	return out, nil
}
