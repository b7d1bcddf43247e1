// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/multiquery"
)

type mapLookup map[int64]*model.Article

func (m mapLookup) GetArticle(_ context.Context, id int64) (*model.Article, error) {
	a, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func newsArticles(n int) []model.Article {
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	out := make([]model.Article, n)
	for i := range out {
		out[i] = model.Article{
			ID:          int64(i + 1),
			PostType:    model.PostTypeNews,
			Title:       fmt.Sprintf("Story %d", i+1),
			Slug:        fmt.Sprintf("story-%d", i+1),
			Status:      model.ArticleStatusPublished,
			PublishedAt: sql.NullTime{Time: base.Add(-time.Duration(i) * time.Hour), Valid: true},
		}
	}
	return out
}

func newTestRegistry(t *testing.T, lookup mapLookup, pool []model.Article) *Registry {
	t.Helper()
	fetch := func(_ context.Context, q multiquery.Query) ([]model.Article, error) {
		if q.Offset >= int64(len(pool)) || q.Limit == 0 {
			return nil, nil
		}
		end := int64(len(pool))
		if q.Limit > 0 && q.Offset+q.Limit < end {
			end = q.Offset + q.Limit
		}
		return pool[q.Offset:end], nil
	}
	r := NewRegistry(testLogger())
	require.NoError(t, RegisterNews(r, NewsDeps{
		Articles:    lookup,
		Distributor: multiquery.NewDistributor(fetch, RenderArticles, testLogger()),
	}))
	return r
}

func TestRegisterNews_Names(t *testing.T) {
	r := newTestRegistry(t, mapLookup{}, nil)
	var names []string
	for _, b := range r.List() {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{
		"news/featured-badge", "news/breaking-badge", "news/exclusive-badge",
		"news/sponsored-badge", "news/live-badge", "news/byline", "news/title",
		"news/last-updated", "news/excerpt", "news/multi-query",
	}, names)
}

func TestNewsBlocks_ArticleBlocks(t *testing.T) {
	lookup := mapLookup{
		1: {
			ID: 1, PostType: model.PostTypeNews, Title: "Rates <held>", Slug: "rates-held",
			AuthorName: "Desk", Excerpt: "The central bank kept rates unchanged today.",
			Meta: model.ArticleMeta{Exclusive: true, Byline: "Mia Chen", LastUpdated: "2026-04-01T09:30:00Z"},
		},
		2: {ID: 2, PostType: model.PostTypePage, Title: "About", Meta: model.ArticleMeta{Exclusive: true}},
	}
	r := newTestRegistry(t, lookup, nil)
	ctx := context.Background()

	render := func(name string, attrs map[string]any, id int64) string {
		out, err := r.Render(ctx, name, attrs, id)
		require.NoError(t, err)
		return string(out)
	}

	assert.Equal(t, `<span class="news-badge news-badge--exclusive">Exclusive</span>`, render("news/exclusive-badge", nil, 1))
	assert.Empty(t, render("news/breaking-badge", nil, 1))
	assert.Empty(t, render("news/exclusive-badge", nil, 2), "pages never show badges")

	assert.Equal(t, `<p class="news-byline">By <span class="news-byline__name">Mia Chen</span></p>`, render("news/byline", nil, 1))
	assert.Empty(t, render("news/byline", nil, 2))

	assert.Equal(t, `<h2 class="news-title">Rates &lt;held&gt;</h2>`, render("news/title", nil, 1))
	assert.Equal(t, `<h1 class="news-title"><a href="/news/rates-held">Rates &lt;held&gt;</a></h1>`,
		render("news/title", map[string]any{"level": 1, "isLink": true}, 1))

	updated := render("news/last-updated", map[string]any{"format": "2006-01-02"}, 1)
	assert.Contains(t, updated, `datetime="2026-04-01T09:30:00Z"`)
	assert.Contains(t, updated, `Updated <time`)
	assert.Contains(t, updated, `>2026-04-01</time>`)

	assert.Equal(t, `<p class="news-excerpt">The central bank kept rates unchanged today.</p>`, render("news/excerpt", nil, 1))
	assert.Equal(t, `<p class="news-excerpt">The central bank…</p>`, render("news/excerpt", map[string]any{"length": 20}, 1))

	assert.Empty(t, render("news/title", nil, 0), "no article context")
}

func TestNewsBlocks_MultiQuery(t *testing.T) {
	pool := newsArticles(5)
	r := newTestRegistry(t, mapLookup{}, pool)

	out, err := r.Render(context.Background(), "news/multi-query", map[string]any{
		"templates": []any{"hero", "breaking", "list"},
	}, 0)
	require.NoError(t, err)
	html := string(out)

	assert.True(t, strings.HasPrefix(html, `<div class="news-multi-query">`))
	assert.Equal(t, 1, strings.Count(html, "news-item--hero"))
	assert.Equal(t, 1, strings.Count(html, "news-item--breaking"))
	assert.Equal(t, 3, strings.Count(html, "news-list__item"))
	for i := 1; i <= 5; i++ {
		assert.Equal(t, 1, strings.Count(html, fmt.Sprintf(`href="/news/story-%d"`, i)), "story %d rendered once", i)
	}
	assert.Less(t, strings.Index(html, "story-1"), strings.Index(html, "story-2"))
}

func TestNewsBlocks_MultiQuerySingleTemplate(t *testing.T) {
	pool := newsArticles(4)
	r := newTestRegistry(t, mapLookup{}, pool)

	out, err := r.Render(context.Background(), "news/multi-query", map[string]any{
		"query":     map[string]any{"perPage": 2, "page": 2},
		"templates": []any{"grid"},
	}, 0)
	require.NoError(t, err)
	html := string(out)

	assert.True(t, strings.HasPrefix(html, `<div class="news-query">`))
	assert.Contains(t, html, "story-3")
	assert.Contains(t, html, "story-4")
	assert.NotContains(t, html, "story-1")
}

func TestNewsBlocks_MultiQueryBadRole(t *testing.T) {
	r := newTestRegistry(t, mapLookup{}, newsArticles(2))
	out, err := r.Render(context.Background(), "news/multi-query", map[string]any{"templates": []any{"carousel"}}, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
