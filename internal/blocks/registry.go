// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blocks provides server-rendered content blocks. Each block has a
// namespaced name, an attribute schema and a render function.
package blocks

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"regexp"
	"sort"
	"sync"
)

// RenderContext is what a block renderer receives.
type RenderContext struct {
	Attrs     map[string]any // normalized attributes
	ArticleID int64          // article the block is placed in, 0 if none
}

// RenderFunc renders a block to HTML.
type RenderFunc func(ctx context.Context, rc RenderContext) (template.HTML, error)

// Block is a registered block type.
type Block struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Schema      Schema     `json:"attributes"`
	Render      RenderFunc `json:"-"`
}

var blockName = regexp.MustCompile(`^[a-z0-9-]+/[a-z0-9-]+$`)

// Registry holds block types by name.
type Registry struct {
	mu     sync.RWMutex
	blocks map[string]Block
	logger *slog.Logger
}

// NewRegistry creates an empty block registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{blocks: make(map[string]Block), logger: logger}
}

// Register adds a block type.
func (r *Registry) Register(b Block) error {
	if !blockName.MatchString(b.Name) {
		return fmt.Errorf("invalid block name %q: want namespace/name", b.Name)
	}
	if b.Render == nil {
		return fmt.Errorf("block %q has no renderer", b.Name)
	}
	if err := b.Schema.check(); err != nil {
		return fmt.Errorf("block %q: %w", b.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blocks[b.Name]; exists {
		return fmt.Errorf("block %q already registered", b.Name)
	}
	r.blocks[b.Name] = b
	r.logger.Debug("block registered", "name", b.Name)
	return nil
}

// Get returns the block registered under name.
func (r *Registry) Get(name string) (Block, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocks[name]
	return b, ok
}

// List returns every block sorted by name.
func (r *Registry) List() []Block {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Block, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ErrUnknownBlock is returned for names that are not registered.
type ErrUnknownBlock struct{ Name string }

func (e *ErrUnknownBlock) Error() string { return "unknown block " + e.Name }

// Render normalizes raw attributes and renders the block. Attribute errors
// are returned as *security.ValidationError; renderer errors are logged and
// yield empty output.
func (r *Registry) Render(ctx context.Context, name string, raw map[string]any, articleID int64) (template.HTML, error) {
	b, ok := r.Get(name)
	if !ok {
		return "", &ErrUnknownBlock{Name: name}
	}
	attrs, err := b.Schema.Normalize(raw)
	if err != nil {
		return "", err
	}

	out, err := b.Render(ctx, RenderContext{Attrs: attrs, ArticleID: articleID})
	if err != nil {
		r.logger.Error("block render failed", "block", name, "article_id", articleID, "error", err)
		return "", nil
	}
	return out, nil
}
