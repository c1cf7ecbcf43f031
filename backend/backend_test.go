package backend

import (
	"context"
	"strings"
	"testing"
)

func TestStateBackend_Write(t *testing.T) {
	ctx := context.Background()

	t.Run("basic write", func(t *testing.T) {
		files := map[string]FileRecord{}
		b := NewState(files)

		res, err := b.Write(ctx, "/notes.txt", "hello")
		if err != nil {
			t.Fatal(err)
		}
		if res.BytesWritten != 5 {
			t.Fatalf("expected 5 bytes, got %d", res.BytesWritten)
		}
		if _, ok := files["/notes.txt"]; !ok {
			t.Fatal("expected write to land in the shared map")
		}
	})

	t.Run("write is create-only", func(t *testing.T) {
		b := NewState(nil)
		if _, err := b.Write(ctx, "/a.txt", "one"); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Write(ctx, "/a.txt", "two"); err == nil {
			t.Fatal("expected error writing to existing file")
		}
	})

	t.Run("relative paths are rooted", func(t *testing.T) {
		b := NewState(nil)
		if _, err := b.Write(ctx, "rel.txt", "x"); err != nil {
			t.Fatal(err)
		}
		if _, err := b.ReadRaw(ctx, "/rel.txt"); err != nil {
			t.Fatalf("expected rooted path, got %v", err)
		}
	})
}

func TestStateBackend_Read(t *testing.T) {
	ctx := context.Background()
	b := NewState(nil)
	if _, err := b.Write(ctx, "/f.txt", "one\ntwo\nthree"); err != nil {
		t.Fatal(err)
	}

	t.Run("line numbered", func(t *testing.T) {
		out, err := b.Read(ctx, "/f.txt", 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "1\tone") || !strings.Contains(out, "3\tthree") {
			t.Fatalf("expected numbered lines, got %q", out)
		}
	})

	t.Run("offset and limit", func(t *testing.T) {
		out, err := b.Read(ctx, "/f.txt", 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out, "one") || !strings.Contains(out, "two") || strings.Contains(out, "three") {
			t.Fatalf("expected only line 2, got %q", out)
		}
	})

	t.Run("offset past end is an error", func(t *testing.T) {
		if _, err := b.Read(ctx, "/f.txt", 10, 0); err == nil {
			t.Fatal("expected error for offset past end")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := b.Read(ctx, "/nope.txt", 0, 0); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("raw round-trip", func(t *testing.T) {
		raw, err := b.ReadRaw(ctx, "/f.txt")
		if err != nil {
			t.Fatal(err)
		}
		if raw != "one\ntwo\nthree" {
			t.Fatalf("expected raw content, got %q", raw)
		}
	})
}

func TestStateBackend_Edit(t *testing.T) {
	ctx := context.Background()

	newBackend := func(t *testing.T, content string) *StateBackend {
		t.Helper()
		b := NewState(nil)
		if _, err := b.Write(ctx, "/f.txt", content); err != nil {
			t.Fatal(err)
		}
		return b
	}

	t.Run("single replace", func(t *testing.T) {
		b := newBackend(t, "hello world")
		res, err := b.Edit(ctx, "/f.txt", "world", "go", false)
		if err != nil {
			t.Fatal(err)
		}
		if res.Occurrences != 1 {
			t.Fatalf("expected 1 occurrence, got %d", res.Occurrences)
		}
		raw, _ := b.ReadRaw(ctx, "/f.txt")
		if raw != "hello go" {
			t.Fatalf("expected 'hello go', got %q", raw)
		}
	})

	t.Run("ambiguous without replace_all", func(t *testing.T) {
		b := newBackend(t, "aaa bbb aaa")
		if _, err := b.Edit(ctx, "/f.txt", "aaa", "x", false); err == nil {
			t.Fatal("expected error for ambiguous old_text")
		}
	})

	t.Run("replace_all", func(t *testing.T) {
		b := newBackend(t, "aaa bbb aaa")
		res, err := b.Edit(ctx, "/f.txt", "aaa", "x", true)
		if err != nil {
			t.Fatal(err)
		}
		if res.Occurrences != 2 {
			t.Fatalf("expected 2 occurrences, got %d", res.Occurrences)
		}
	})

	t.Run("old_text not found", func(t *testing.T) {
		b := newBackend(t, "hello")
		if _, err := b.Edit(ctx, "/f.txt", "xyz", "abc", false); err == nil {
			t.Fatal("expected error for missing old_text")
		}
	})

	t.Run("empty old_text", func(t *testing.T) {
		b := newBackend(t, "hello")
		if _, err := b.Edit(ctx, "/f.txt", "", "abc", false); err == nil {
			t.Fatal("expected error for empty old_text")
		}
	})
}

func TestStateBackend_List(t *testing.T) {
	ctx := context.Background()
	b := NewState(nil)
	b.Write(ctx, "/a.txt", "x")
	b.Write(ctx, "/dir/b.txt", "y")
	b.Write(ctx, "/dir/sub/c.txt", "z")

	t.Run("root has file and synthesized dir", func(t *testing.T) {
		entries, err := b.List(ctx, "/")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		// Sorted: /a.txt then /dir
		if entries[0].Path != "/a.txt" || entries[0].IsDir {
			t.Errorf("expected /a.txt file first, got %+v", entries[0])
		}
		if entries[1].Path != "/dir" || !entries[1].IsDir {
			t.Errorf("expected /dir directory, got %+v", entries[1])
		}
	})

	t.Run("listing is not recursive", func(t *testing.T) {
		entries, err := b.List(ctx, "/dir")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
	})
}

func TestStateBackend_GrepGlob(t *testing.T) {
	ctx := context.Background()
	b := NewState(nil)
	b.Write(ctx, "/src/main.go", "package main\nfunc main() {}")
	b.Write(ctx, "/src/util.go", "package main\nfunc helper() {}")
	b.Write(ctx, "/README.md", "func docs")

	t.Run("grep matches with line numbers", func(t *testing.T) {
		matches, err := b.Grep(ctx, `func \w+`, "/src", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(matches))
		}
		if matches[0].Line != 2 {
			t.Errorf("expected line 2, got %d", matches[0].Line)
		}
	})

	t.Run("grep glob filter", func(t *testing.T) {
		matches, err := b.Grep(ctx, "func", "/", "*.md")
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 || matches[0].Path != "/README.md" {
			t.Fatalf("expected only README match, got %+v", matches)
		}
	})

	t.Run("invalid regex fails before IO", func(t *testing.T) {
		if _, err := b.Grep(ctx, "[invalid", "/", ""); err == nil {
			t.Fatal("expected error for invalid regex")
		}
	})

	t.Run("glob sorted", func(t *testing.T) {
		paths, err := b.Glob(ctx, "*.go", "/src")
		if err != nil {
			t.Fatal(err)
		}
		if len(paths) != 2 || paths[0] != "/src/main.go" || paths[1] != "/src/util.go" {
			t.Fatalf("expected sorted go files, got %v", paths)
		}
	})
}
