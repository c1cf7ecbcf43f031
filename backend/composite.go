package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CompositeBackend routes operations to delegate backends by path prefix.
// It has no storage of its own: a path is resolved to exactly one delegate
// by longest matching registered prefix, the prefix is stripped before
// delegating and re-added to results. Unmatched paths go to the default
// delegate unchanged.
type CompositeBackend struct {
	mounts []mount // sorted by prefix length, longest first
	def    Backend
}

type mount struct {
	prefix string
	b      Backend
}

// NewComposite creates a routing backend. def handles unmatched paths and
// must not be nil.
func NewComposite(def Backend, mounts map[string]Backend) (*CompositeBackend, error) {
	if def == nil {
		return nil, fmt.Errorf("composite backend requires a default delegate")
	}
	c := &CompositeBackend{def: def}
	for prefix, b := range mounts {
		p := cleanPath(prefix)
		if p == "/" {
			return nil, fmt.Errorf("mount prefix must not be the root; use the default delegate")
		}
		c.mounts = append(c.mounts, mount{prefix: p, b: b})
	}
	sort.Slice(c.mounts, func(i, j int) bool {
		if len(c.mounts[i].prefix) != len(c.mounts[j].prefix) {
			return len(c.mounts[i].prefix) > len(c.mounts[j].prefix)
		}
		return c.mounts[i].prefix < c.mounts[j].prefix
	})
	return c, nil
}

// route resolves p to a delegate. Returns the delegate, the delegate-local
// path, and the matched prefix ("" for the default).
func (c *CompositeBackend) route(p string) (Backend, string, string) {
	v := cleanPath(p)
	for _, m := range c.mounts {
		if v == m.prefix {
			return m.b, "/", m.prefix
		}
		if strings.HasPrefix(v, m.prefix+"/") {
			return m.b, strings.TrimPrefix(v, m.prefix), m.prefix
		}
	}
	return c.def, v, ""
}

func rePrefix(prefix, inner string) string {
	if prefix == "" {
		return inner
	}
	if inner == "/" {
		return prefix
	}
	return prefix + inner
}

func (c *CompositeBackend) List(ctx context.Context, dir string) ([]FileInfo, error) {
	v := cleanPath(dir)
	if v == "/" {
		// Synthetic root: the default's root listing plus one directory
		// entry per mount.
		out, err := c.def.List(ctx, "/")
		if err != nil {
			return nil, err
		}
		for _, m := range c.mounts {
			out = append(out, FileInfo{Path: m.prefix, IsDir: true})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
		return out, nil
	}

	b, inner, prefix := c.route(v)
	entries, err := b.List(ctx, inner)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Path = rePrefix(prefix, entries[i].Path)
	}
	return entries, nil
}

func (c *CompositeBackend) Read(ctx context.Context, p string, offset, limit int) (string, error) {
	b, inner, _ := c.route(p)
	return b.Read(ctx, inner, offset, limit)
}

func (c *CompositeBackend) ReadRaw(ctx context.Context, p string) (string, error) {
	b, inner, _ := c.route(p)
	return b.ReadRaw(ctx, inner)
}

func (c *CompositeBackend) Write(ctx context.Context, p, content string) (*WriteResult, error) {
	b, inner, prefix := c.route(p)
	res, err := b.Write(ctx, inner, content)
	if err != nil {
		return nil, err
	}
	res.Path = rePrefix(prefix, res.Path)
	return res, nil
}

func (c *CompositeBackend) Edit(ctx context.Context, p, oldText, newText string, replaceAll bool) (*EditResult, error) {
	b, inner, prefix := c.route(p)
	res, err := b.Edit(ctx, inner, oldText, newText, replaceAll)
	if err != nil {
		return nil, err
	}
	res.Path = rePrefix(prefix, res.Path)
	return res, nil
}

func (c *CompositeBackend) Grep(ctx context.Context, pattern, dir, glob string) ([]GrepMatch, error) {
	b, inner, prefix := c.route(dir)
	matches, err := b.Grep(ctx, pattern, inner, glob)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Path = rePrefix(prefix, matches[i].Path)
	}
	return matches, nil
}

func (c *CompositeBackend) Glob(ctx context.Context, pattern, dir string) ([]string, error) {
	b, inner, prefix := c.route(dir)
	paths, err := b.Glob(ctx, pattern, inner)
	if err != nil {
		return nil, err
	}
	for i := range paths {
		paths[i] = rePrefix(prefix, paths[i])
	}
	return paths, nil
}
