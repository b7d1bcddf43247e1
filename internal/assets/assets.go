// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package assets registers front-end scripts and styles, versions them by
// content hash and prints their tags in dependency order.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"sync"
)

// Asset kinds
const (
	KindScript = "script"
	KindStyle  = "style"
)

// Asset is one registered script or stylesheet.
type Asset struct {
	Handle  string
	Kind    string
	Path    string // path inside the static FS, e.g. "css/news.css"
	Deps    []string
	Version string // content hash when left empty
	Defer   bool
}

// Manager holds the registered assets. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	assets  map[string]Asset
	static  fs.FS
	baseURL string
	logger  *slog.Logger
}

// NewManager creates a manager serving files from static under baseURL
// (e.g. "/static").
func NewManager(static fs.FS, baseURL string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		assets:  make(map[string]Asset),
		static:  static,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Register adds or replaces an asset. Version defaults to the first 12 hex
// characters of the SHA-256 of the file.
func (m *Manager) Register(a Asset) error {
	if a.Handle == "" {
		return fmt.Errorf("asset handle is required")
	}
	if a.Kind != KindScript && a.Kind != KindStyle {
		return fmt.Errorf("asset %s: unknown kind %q", a.Handle, a.Kind)
	}
	if a.Version == "" {
		v, err := m.contentHash(a.Path)
		if err != nil {
			return fmt.Errorf("asset %s: %w", a.Handle, err)
		}
		a.Version = v
	}

	m.mu.Lock()
	m.assets[a.Handle] = a
	m.mu.Unlock()
	return nil
}

// Get returns a registered asset.
func (m *Manager) Get(handle string) (Asset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[handle]
	return a, ok
}

// URL returns the versioned URL of a registered asset.
func (m *Manager) URL(a Asset) string {
	return m.baseURL + "/" + strings.TrimLeft(a.Path, "/") + "?ver=" + url.QueryEscape(a.Version)
}

func (m *Manager) contentHash(path string) (string, error) {
	if m.static == nil {
		return "", fmt.Errorf("no static filesystem")
	}
	data, err := fs.ReadFile(m.static, strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12], nil
}

// Resolve orders handles and their dependencies so that every dependency
// precedes its dependents. Unknown handles and cycles are logged and skipped.
func (m *Manager) Resolve(handles []string) []Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	const (
		visiting = 1
		done     = 2
		failed   = 3
	)
	state := make(map[string]int)
	var out []Asset

	var visit func(h string, path []string) bool
	visit = func(h string, path []string) bool {
		switch state[h] {
		case done:
			return true
		case failed:
			return false
		case visiting:
			m.logger.Warn("asset dependency cycle", "handle", h, "path", strings.Join(append(path, h), " -> "))
			return false
		}
		a, ok := m.assets[h]
		if !ok {
			m.logger.Warn("unknown asset handle", "handle", h)
			state[h] = failed
			return false
		}

		state[h] = visiting
		for _, dep := range a.Deps {
			if !visit(dep, append(path, h)) {
				state[h] = failed
				return false
			}
		}
		state[h] = done
		out = append(out, a)
		return true
	}

	for _, h := range handles {
		visit(h, nil)
	}
	return out
}

// Queue collects the handles one page enqueues.
type Queue struct {
	m       *Manager
	handles []string
}

// NewQueue starts an empty queue.
func (m *Manager) NewQueue() *Queue {
	return &Queue{m: m}
}

// Enqueue adds handles; duplicates are printed once.
func (q *Queue) Enqueue(handles ...string) *Queue {
	q.handles = append(q.handles, handles...)
	return q
}

// Styles returns the <link> tags of the enqueued styles.
func (q *Queue) Styles() template.HTML {
	return q.tags(KindStyle)
}

// Scripts returns the <script> tags of the enqueued scripts.
func (q *Queue) Scripts() template.HTML {
	return q.tags(KindScript)
}

func (q *Queue) tags(kind string) template.HTML {
	var sb strings.Builder
	for _, a := range q.m.Resolve(q.handles) {
		if a.Kind != kind {
			continue
		}
		src := template.HTMLEscapeString(q.m.URL(a))
		switch kind {
		case KindStyle:
			fmt.Fprintf(&sb, `<link rel="stylesheet" id="%s-css" href="%s">`+"\n", template.HTMLEscapeString(a.Handle), src)
		case KindScript:
			attr := ""
			if a.Defer {
				attr = " defer"
			}
			fmt.Fprintf(&sb, `<script id="%s-js" src="%s"%s></script>`+"\n", template.HTMLEscapeString(a.Handle), src, attr)
		}
	}
	return template.HTML(sb.String()) //nolint:gosec // attributes escaped above
}
