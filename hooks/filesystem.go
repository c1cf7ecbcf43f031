// Package hooks contains the middleware stages the orchestrator composes
// around tool and model calls: filesystem tools, large-result eviction,
// todo tracking, approval gates, and memory injection. Each stage is a
// plain agent.Hook and independently testable.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"

	"deepagent/agent"
	"deepagent/backend"
)

// FilesystemHook registers the file-operation tools (ls, read_file,
// write_file, edit_file, glob, grep) against a backend. Domain errors are
// returned to the model as result strings so it can self-correct; they are
// never surfaced as Go errors.
type FilesystemHook struct {
	agent.BaseHook
	b backend.Backend
}

// NewFilesystemHook creates a filesystem hook over the given backend. A nil
// backend defaults to each run's own state backend, resolved in BeforeAgent
// so the registered tools always write into the current run's files.
func NewFilesystemHook(b backend.Backend) *FilesystemHook {
	return &FilesystemHook{b: b}
}

func (h *FilesystemHook) Name() string { return "filesystem" }

// BeforeAgent registers the six file-operation tools on the run state. The
// tools capture the backend resolved here, never the hook instance, so one
// hook can serve successive runs on different threads.
func (h *FilesystemHook) BeforeAgent(ctx context.Context, state *agent.AgentState) error {
	b := h.b
	if b == nil {
		b = state.FileBackend()
	}
	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "ls",
		ToolDesc: "List the immediate children of a directory. Returns paths, types, sizes, and modification times.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Directory path to list (default: /)"},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			entries, err := b.List(ctx, path)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			agent.EmitterFromContext(ctx).Emit(ctx, agent.EventLs, "ls", map[string]any{
				"path": path, "count": len(entries),
			})
			data, _ := json.Marshal(entries)
			return string(data), nil
		},
	})

	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "read_file",
		ToolDesc: "Read a file as a line-numbered slice. Use offset and limit to page through large files.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{"type": "string", "description": "Path of the file to read"},
				"offset":    map[string]any{"type": "integer", "description": "0-based line offset to start at"},
				"limit":     map[string]any{"type": "integer", "description": "Maximum number of lines to return"},
			},
			"required": []string{"file_path"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["file_path"].(string)
			if path == "" {
				return "Error: file_path is required", nil
			}
			offset := intArg(args, "offset")
			limit := intArg(args, "limit")
			content, err := b.Read(ctx, path, offset, limit)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			agent.EmitterFromContext(ctx).Emit(ctx, agent.EventFileRead, "read_file", map[string]any{
				"path": path, "offset": offset, "limit": limit,
			})
			return content, nil
		},
	})

	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "write_file",
		ToolDesc: "Create a new file with the given content. Fails if the file already exists; use edit_file to change existing files.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{"type": "string", "description": "Path of the file to create"},
				"content":   map[string]any{"type": "string", "description": "Content to write"},
			},
			"required": []string{"file_path", "content"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["file_path"].(string)
			content, _ := args["content"].(string)
			if path == "" {
				return "Error: file_path is required", nil
			}
			em := agent.EmitterFromContext(ctx)
			em.Emit(ctx, agent.EventFileWriteStart, "write_file", map[string]any{
				"path": path, "bytes": len(content),
			})
			res, err := b.Write(ctx, path, content)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			em.Emit(ctx, agent.EventFileWritten, "write_file", map[string]any{
				"path": res.Path, "bytes": res.BytesWritten,
			})
			return fmt.Sprintf("File written: %s (%d bytes)", res.Path, res.BytesWritten), nil
		},
	})

	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "edit_file",
		ToolDesc: "Replace old_text with new_text in a file. old_text must match exactly; set replace_all when it occurs more than once.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path":   map[string]any{"type": "string", "description": "Path of the file to edit"},
				"old_text":    map[string]any{"type": "string", "description": "Exact text to find"},
				"new_text":    map[string]any{"type": "string", "description": "Replacement text"},
				"replace_all": map[string]any{"type": "boolean", "description": "Replace every occurrence"},
			},
			"required": []string{"file_path", "old_text", "new_text"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["file_path"].(string)
			oldText, _ := args["old_text"].(string)
			newText, _ := args["new_text"].(string)
			replaceAll, _ := args["replace_all"].(bool)
			if path == "" {
				return "Error: file_path is required", nil
			}
			res, err := b.Edit(ctx, path, oldText, newText, replaceAll)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			agent.EmitterFromContext(ctx).Emit(ctx, agent.EventFileEdited, "edit_file", map[string]any{
				"path": res.Path, "occurrences": res.Occurrences,
			})
			return fmt.Sprintf("Edited %s (%d occurrence(s) replaced)", res.Path, res.Occurrences), nil
		},
	})

	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "glob",
		ToolDesc: "Find files matching a shell-style glob pattern. Results are sorted.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{"type": "string", "description": "Glob pattern (e.g. '*.go', 'src/*.py')"},
				"path":    map[string]any{"type": "string", "description": "Directory to search in (default: /)"},
			},
			"required": []string{"pattern"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			path, _ := args["path"].(string)
			paths, err := b.Glob(ctx, pattern, path)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			agent.EmitterFromContext(ctx).Emit(ctx, agent.EventGlob, "glob", map[string]any{
				"pattern": pattern, "count": len(paths),
			})
			data, _ := json.Marshal(paths)
			return string(data), nil
		},
	})

	agent.RegisterToolOnState(state, &agent.FuncTool{
		ToolName: "grep",
		ToolDesc: "Search file contents for a regular expression. Returns matching lines with paths and line numbers.",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{"type": "string", "description": "Regular expression to search for"},
				"path":    map[string]any{"type": "string", "description": "Directory to search in (default: /)"},
				"glob":    map[string]any{"type": "string", "description": "Glob filter on file names (e.g. '*.go')"},
			},
			"required": []string{"pattern"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			path, _ := args["path"].(string)
			glob, _ := args["glob"].(string)
			matches, err := b.Grep(ctx, pattern, path, glob)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			agent.EmitterFromContext(ctx).Emit(ctx, agent.EventGrep, "grep", map[string]any{
				"pattern": pattern, "count": len(matches),
			})
			data, _ := json.Marshal(matches)
			return string(data), nil
		},
	})

	return nil
}

// intArg extracts an integer argument; model-provided numbers arrive as
// float64 through JSON.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
