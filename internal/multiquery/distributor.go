// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package multiquery

import (
	"context"
	"html/template"
	"log/slog"
	"strings"

	"github.com/olegiv/newsroom/internal/model"
)

// Default paging of a query block.
const (
	DefaultPerPage int64 = 10
	MaxPerPage     int64 = 100
)

// Query is the parent query of a block: filters, ordering and the paging
// context children inherit.
type Query struct {
	Section      string `json:"section,omitempty"`
	FeaturedOnly bool   `json:"featuredOnly,omitempty"`
	BreakingOnly bool   `json:"breakingOnly,omitempty"`
	Order        string `json:"order,omitempty"`
	Page         int64  `json:"page,omitempty"`
	PerPage      int64  `json:"perPage,omitempty"`

	// Offset and Limit are the effective window. They are derived from
	// Page and PerPage unless a child assignment overrides them.
	Offset int64 `json:"-"`
	Limit  int64 `json:"-"`
}

// Normalize clamps paging values into range.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

// DefaultWindow applies the inherited page and per-page values.
func (q Query) DefaultWindow() Query {
	q = q.Normalize()
	q.Offset = (q.Page - 1) * q.PerPage
	q.Limit = q.PerPage
	return q
}

// WithAssignment merges a child window over the inherited paging: filters and
// ordering are kept, offset and page size are replaced.
func (q Query) WithAssignment(a Assignment) Query {
	q = q.Normalize()
	q.Offset = a.Offset
	q.Limit = a.PageSize
	return q
}

// FetchFunc runs a query and returns the matching articles in order.
type FetchFunc func(ctx context.Context, q Query) ([]model.Article, error)

// RenderFunc renders one template against its slice of articles.
type RenderFunc func(ctx context.Context, t Template, items []model.Article) (template.HTML, error)

// Container classes wrapping the rendered output.
const (
	MultiClass  = "news-multi-query"
	SingleClass = "news-query"
)

// Distributor renders query blocks with one or more child templates.
type Distributor struct {
	fetch  FetchFunc
	render RenderFunc
	logger *slog.Logger
}

// NewDistributor creates a Distributor.
func NewDistributor(fetch FetchFunc, render RenderFunc, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{fetch: fetch, render: render, logger: logger}
}

// Render fetches and renders q across templates. With a single template the
// distributor is bypassed and the inherited paging is used unmodified.
// Fetch and render failures are logged and yield an empty fragment.
func (d *Distributor) Render(ctx context.Context, q Query, templates []Template) template.HTML {
	switch len(templates) {
	case 0:
		return ""
	case 1:
		frag := d.renderWindow(ctx, q.DefaultWindow(), templates[0])
		return wrap(SingleClass, frag)
	}

	assignments, warnings := Plan(templates)
	for _, w := range warnings {
		d.logger.Warn("multi-query layout", "warning", w, "category", "article")
	}

	var sb strings.Builder
	for _, a := range assignments {
		if a.Empty() {
			continue
		}
		sb.WriteString(string(d.renderWindow(ctx, q.WithAssignment(a), a.Template)))
	}
	return wrap(MultiClass, template.HTML(sb.String()))
}

func (d *Distributor) renderWindow(ctx context.Context, q Query, t Template) template.HTML {
	items, err := d.fetch(ctx, q)
	if err != nil {
		d.logger.Error("multi-query fetch failed", "role", t.Role, "offset", q.Offset, "error", err)
		return ""
	}
	if len(items) == 0 {
		return ""
	}

	frag, err := d.render(ctx, t, items)
	if err != nil {
		d.logger.Error("multi-query render failed", "role", t.Role, "error", err)
		return ""
	}
	return frag
}

func wrap(class string, inner template.HTML) template.HTML {
	return template.HTML(`<div class="` + class + `">` + string(inner) + `</div>`)
}
