package backend

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DiskBackend stores files on the host filesystem under a fixed root
// directory. Virtual paths map onto the root; anything resolving outside
// it, and any symlinked component, is rejected before touching the disk.
type DiskBackend struct {
	root string
}

// NewDisk creates a disk backend rooted at dir, creating it if needed.
func NewDisk(dir string) (*DiskBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("root directory is required for the disk backend")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", abs, err)
	}
	return &DiskBackend{root: abs}, nil
}

// Root returns the host directory this backend is rooted at.
func (b *DiskBackend) Root() string { return b.root }

// resolve maps a virtual path to a host path, enforcing the traversal and
// symlink guards.
func (b *DiskBackend) resolve(p string) (string, error) {
	v := cleanPath(p)
	host := filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(v, "/")))
	if host != b.root && !strings.HasPrefix(host, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes backend root: %s", p)
	}
	// Reject symlinks on every existing component between target and root.
	for cur := host; ; cur = filepath.Dir(cur) {
		if fi, err := os.Lstat(cur); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("symlinked path rejected: %s", p)
		}
		if cur == b.root || cur == filepath.Dir(cur) {
			break
		}
	}
	return host, nil
}

func (b *DiskBackend) toVirtual(host string) string {
	rel, err := filepath.Rel(b.root, host)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

func (b *DiskBackend) List(_ context.Context, dir string) ([]FileInfo, error) {
	host, err := b.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", cleanPath(dir))
		}
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fi := FileInfo{
			Path:       b.toVirtual(filepath.Join(host, e.Name())),
			IsDir:      e.IsDir(),
			ModifiedAt: info.ModTime(),
		}
		if !e.IsDir() {
			fi.Size = info.Size()
		}
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *DiskBackend) Read(ctx context.Context, p string, offset, limit int) (string, error) {
	content, err := b.ReadRaw(ctx, p)
	if err != nil {
		return "", err
	}
	return formatRead(cleanPath(p), content, offset, limit)
}

func (b *DiskBackend) ReadRaw(_ context.Context, p string) (string, error) {
	host, err := b.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", cleanPath(p))
		}
		return "", err
	}
	return string(data), nil
}

func (b *DiskBackend) Write(_ context.Context, p, content string) (*WriteResult, error) {
	host, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(host); err == nil {
		return nil, fmt.Errorf("file already exists: %s", cleanPath(p))
	}
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	f, err := os.OpenFile(host, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("file already exists: %s", cleanPath(p))
		}
		return nil, fmt.Errorf("create %s: %w", cleanPath(p), err)
	}
	_, werr := f.WriteString(content)
	cerr := f.Close()
	if werr != nil {
		os.Remove(host)
		return nil, fmt.Errorf("write %s: %w", cleanPath(p), werr)
	}
	if cerr != nil {
		os.Remove(host)
		return nil, fmt.Errorf("write %s: %w", cleanPath(p), cerr)
	}
	return &WriteResult{Path: cleanPath(p), BytesWritten: len(content)}, nil
}

func (b *DiskBackend) Edit(_ context.Context, p, oldText, newText string, replaceAll bool) (*EditResult, error) {
	host, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", cleanPath(p))
		}
		return nil, err
	}
	updated, n, err := replaceExact(cleanPath(p), string(data), oldText, newText, replaceAll)
	if err != nil {
		return nil, err
	}

	// Atomic replace: temp file in the same directory, then rename.
	dir := filepath.Dir(host)
	tmp, err := os.CreateTemp(dir, ".backend-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(updated); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpName, host); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("rename temp file: %w", err)
	}
	return &EditResult{Path: cleanPath(p), Occurrences: n}, nil
}

func (b *DiskBackend) Grep(_ context.Context, pattern, dir, glob string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %v", err)
	}
	host, err := b.resolve(dir)
	if err != nil {
		return nil, err
	}

	matches := []GrepMatch{}
	walkErr := filepath.WalkDir(host, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirName(d.Name()) && p != host {
				return filepath.SkipDir
			}
			return nil
		}
		if isBinaryExt(strings.ToLower(filepath.Ext(p))) {
			return nil
		}
		rel, _ := filepath.Rel(host, p)
		if !matchGlob(glob, filepath.ToSlash(rel)) {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{Path: b.toVirtual(p), Line: lineNum, Text: line})
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return matches, nil
}

func (b *DiskBackend) Glob(_ context.Context, pattern, dir string) ([]string, error) {
	host, err := b.resolve(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	filepath.WalkDir(host, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirName(d.Name()) && p != host {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(host, p)
		if matchGlob(pattern, filepath.ToSlash(rel)) {
			out = append(out, b.toVirtual(p))
		}
		return nil
	})
	sort.Strings(out)
	return out, nil
}

// skipDirName filters directories that are never useful to search.
func skipDirName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "__pycache__", "vendor":
		return true
	}
	return false
}

// isBinaryExt returns true for file extensions skipped during grep.
func isBinaryExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp",
		".zip", ".tar", ".gz", ".bz2", ".xz", ".7z",
		".pdf", ".doc", ".docx", ".xls", ".xlsx",
		".so", ".dylib", ".dll", ".exe", ".o", ".a",
		".wasm", ".pyc", ".class",
		".mp3", ".mp4", ".avi", ".mov", ".wav", ".flac":
		return true
	}
	return false
}
