// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package badge renders the editorial flag badges of news articles.
package badge

import (
	"context"
	"html/template"

	"github.com/olegiv/newsroom/internal/model"
)

// ArticleLookup resolves an article with its metadata.
type ArticleLookup interface {
	GetArticle(ctx context.Context, id int64) (*model.Article, error)
}

// Renderer renders badges for articles resolved through an ArticleLookup.
type Renderer struct {
	articles ArticleLookup
}

// NewRenderer creates a badge renderer.
func NewRenderer(articles ArticleLookup) *Renderer {
	return &Renderer{articles: articles}
}

// Render returns the badge for flag on the article with id, or "" when the
// article is missing, is not news, or the flag is unset.
func (r *Renderer) Render(ctx context.Context, flag model.Flag, id int64) template.HTML {
	a, err := r.articles.GetArticle(ctx, id)
	if err != nil || a == nil {
		return ""
	}
	return ForArticle(a, flag)
}

// All returns every set badge of the article in badge order.
func (r *Renderer) All(ctx context.Context, id int64) template.HTML {
	a, err := r.articles.GetArticle(ctx, id)
	if err != nil || a == nil {
		return ""
	}
	return AllForArticle(a)
}

// ForArticle renders one badge for an already loaded article.
func ForArticle(a *model.Article, flag model.Flag) template.HTML {
	if a == nil || !a.IsNews() || !a.Meta.Flag(flag) {
		return ""
	}
	return HTML(flag)
}

// AllForArticle renders every set badge of an already loaded article.
func AllForArticle(a *model.Article) template.HTML {
	if a == nil || !a.IsNews() {
		return ""
	}
	var out template.HTML
	for _, f := range a.Meta.ActiveFlags() {
		out += HTML(f)
	}
	return out
}

// HTML returns the badge markup of flag. Labels are constants, so no escaping
// is needed.
func HTML(flag model.Flag) template.HTML {
	label := flag.Label()
	if label == "" {
		return ""
	}
	return template.HTML(`<span class="news-badge news-badge--` + string(flag) + `">` + label + `</span>`)
}
