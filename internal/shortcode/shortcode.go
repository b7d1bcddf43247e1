// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package shortcode expands [tag key="value"] embeds in article bodies.
package shortcode

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Attrs are the attributes of one shortcode. Keys are lower case.
type Attrs map[string]string

// String returns the attribute or def when it is absent or blank.
func (a Attrs) String(key, def string) string {
	if v := strings.TrimSpace(a[key]); v != "" {
		return v
	}
	return def
}

// Int returns the attribute as an integer, or def when absent or invalid.
func (a Attrs) Int(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(a[key])); err == nil {
		return n
	}
	return def
}

// Bool returns the attribute as a boolean. A bare flag such as [tag scroll]
// counts as true.
func (a Attrs) Bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// HandlerFunc renders one shortcode.
type HandlerFunc func(ctx context.Context, attrs Attrs) (template.HTML, error)

var (
	// tagPattern matches [tag ...] and the escaped form [[tag ...]].
	tagPattern = regexp.MustCompile(`\[(\[?)([a-z][a-z0-9_]*)((?:\s[^\[\]]*)?)\](\]?)`)
	tagName    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	// attrPattern matches key="v", key='v', key=v and bare keys.
	attrPattern = regexp.MustCompile(`([A-Za-z_][\w-]*)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+)))?`)
)

// Tag is one parsed shortcode occurrence.
type Tag struct {
	Name  string
	Attrs Attrs
	Raw   string
}

// ParseAttrs parses an attribute string. Entities are decoded first because
// bodies pass through the HTML sanitizer, which escapes quotes.
func ParseAttrs(s string) Attrs {
	s = html.UnescapeString(s)
	s = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'").Replace(s)

	attrs := Attrs{}
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		key := strings.ToLower(m[1])
		switch {
		case m[2] != "":
			attrs[key] = m[2]
		case m[3] != "":
			attrs[key] = m[3]
		default:
			attrs[key] = m[4]
		}
	}
	return attrs
}

// Parse returns every unescaped shortcode in content, in order.
func Parse(content string) []Tag {
	var tags []Tag
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		if m[1] == "[" && m[4] == "]" {
			continue
		}
		tags = append(tags, Tag{Name: m[2], Attrs: ParseAttrs(m[3]), Raw: m[0]})
	}
	return tags
}

// Strip removes the named shortcodes from content, for text that is shown
// without expansion such as excerpts. Other bracketed text is kept and the
// escaped form [[tag]] becomes the literal [tag].
func Strip(content string, tags []string) string {
	if !strings.Contains(content, "[") {
		return content
	}
	return tagPattern.ReplaceAllStringFunc(content, func(raw string) string {
		m := tagPattern.FindStringSubmatch(raw)
		if !slices.Contains(tags, m[2]) {
			return raw
		}
		if m[1] == "[" && m[4] == "]" {
			return raw[1 : len(raw)-1]
		}
		return m[1] + m[4]
	})
}

// Registry maps tag names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewRegistry creates an empty shortcode registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc), logger: logger}
}

// Register adds a handler for tag.
func (r *Registry) Register(tag string, fn HandlerFunc) error {
	if !tagName.MatchString(tag) {
		return fmt.Errorf("invalid shortcode tag %q", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[tag]; exists {
		return fmt.Errorf("shortcode %q already registered", tag)
	}
	r.handlers[tag] = fn
	return nil
}

// Tags returns the registered tag names.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		out = append(out, tag)
	}
	return out
}

func (r *Registry) handler(tag string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[tag]
	return fn, ok
}

// Expand replaces every registered shortcode in content with its output.
// Unknown tags are left as written, [[tag]] becomes the literal [tag], and
// handler errors are logged and render as nothing.
func (r *Registry) Expand(ctx context.Context, content template.HTML) template.HTML {
	s := string(content)
	if !strings.Contains(s, "[") {
		return content
	}

	out := tagPattern.ReplaceAllStringFunc(s, func(raw string) string {
		m := tagPattern.FindStringSubmatch(raw)
		if m[1] == "[" && m[4] == "]" {
			return raw[1 : len(raw)-1]
		}
		fn, ok := r.handler(m[2])
		if !ok {
			return raw
		}
		frag, err := fn(ctx, ParseAttrs(m[3]))
		if err != nil {
			r.logger.Error("shortcode failed", "tag", m[2], "error", err)
			return m[1] + m[4]
		}
		return m[1] + string(frag) + m[4]
	})
	return template.HTML(out) //nolint:gosec // content is sanitized and fragments come from html/template
}
