// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/module"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/seo"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/testutil/moduleutil"
)

type frontendEnv struct {
	ctx    *module.Context
	server http.Handler
}

func newFrontendEnv(t *testing.T) *frontendEnv {
	t.Helper()
	ctx := moduleutil.TestModuleContext(t)

	templates, err := multiquery.ParseTemplates(ctx.Config.HomeTemplates)
	require.NoError(t, err)

	h := NewFrontendHandler(FrontendConfig{
		Articles:      ctx.Articles,
		Sections:      ctx.Sections,
		Distributor:   moduleutil.Distributor(ctx),
		Blocks:        ctx.Blocks,
		Shortcodes:    ctx.Shortcodes,
		Hooks:         ctx.Hooks,
		Renderer:      ctx.Render,
		Site:          &seo.SiteConfig{SiteName: ctx.Config.SiteName, SiteURL: ctx.Config.SiteURL},
		HomeTemplates: templates,
		HomePerPage:   ctx.Config.HomePerPage,
		Logger:        ctx.Logger,
	})

	r := chi.NewRouter()
	h.Routes(r)
	return &frontendEnv{ctx: ctx, server: ctx.Sessions.LoadAndSave(r)}
}

func (e *frontendEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *frontendEnv) publish(t *testing.T, title string, meta *model.ArticleMeta, sections ...string) int64 {
	t.Helper()
	return moduleutil.CreateArticle(t, e.ctx, service.ArticleInput{
		Title:    title,
		Body:     "<p>" + title + " body.</p>",
		Status:   model.ArticleStatusPublished,
		Meta:     meta,
		Sections: sections,
	})
}

func TestFrontend_Home(t *testing.T) {
	e := newFrontendEnv(t)
	e.publish(t, "Lead story", &model.ArticleMeta{Featured: true})
	e.publish(t, "Flood warning", &model.ArticleMeta{Breaking: true})
	e.publish(t, "Council budget", nil)
	moduleutil.CreateSection(t, e.ctx, service.SectionInput{Name: "World"})

	rec := e.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, multiquery.MultiClass)
	for _, title := range []string{"Lead story", "Flood warning", "Council budget"} {
		assert.Contains(t, body, title)
	}
	assert.Contains(t, body, `href="/section/world"`)
	assert.Contains(t, body, `/static/css/news.css?ver=`)
	assert.Contains(t, body, `/static/js/ticker.js?ver=`)
	assert.Contains(t, body, "WebSite")
}

func TestFrontend_HomeRemainderIsUnbounded(t *testing.T) {
	e := newFrontendEnv(t)
	n := e.ctx.Config.HomePerPage + 3
	for i := range n {
		e.publish(t, fmt.Sprintf("Home story %02d", i), nil)
	}

	first := e.get(t, "/")
	require.Equal(t, http.StatusOK, first.Code)
	for i := range n {
		assert.Contains(t, first.Body.String(), fmt.Sprintf("Home story %02d", i))
	}
	assert.NotContains(t, first.Body.String(), `class="pagination"`)

	second := e.get(t, "/?page=2")
	require.Equal(t, http.StatusOK, second.Code)
	for i := range n {
		assert.Contains(t, second.Body.String(), fmt.Sprintf("Home story %02d", i))
	}
}

func TestFrontend_Article(t *testing.T) {
	e := newFrontendEnv(t)
	moduleutil.CreateSection(t, e.ctx, service.SectionInput{Name: "Politics"})
	e.publish(t, "Earlier report", nil)
	moduleutil.CreateArticle(t, e.ctx, service.ArticleInput{
		Title:  "Election night",
		Body:   "<p>Polls closed.</p>[news_list count=3]",
		Status: model.ArticleStatusPublished,
		Meta: &model.ArticleMeta{
			Breaking:    true,
			IsLive:      true,
			Byline:      "Ana Reyes",
			LastUpdated: "2026-05-04 10:30:00",
		},
		Sections: []string{"politics"},
	})

	rec := e.get(t, "/news/election-night")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<h1 class=\"article__title\">Election night</h1>")
	assert.Contains(t, body, "news-badge--breaking")
	assert.Contains(t, body, "news-badge--live")
	assert.Contains(t, body, "article--live")
	assert.Contains(t, body, "Ana Reyes")
	assert.Contains(t, body, `datetime="2026-05-04T10:30:00Z"`)
	assert.Contains(t, body, `class="news-list"`, "shortcode in the body is expanded")
	assert.Contains(t, body, "Earlier report")
	assert.Contains(t, body, "news-ticker")
	assert.Contains(t, body, `"@type":"NewsArticle"`)
	assert.Contains(t, body, `href="/section/politics"`)
	assert.NotContains(t, body, "[news_list")
}

func TestFrontend_ArticleNotFound(t *testing.T) {
	e := newFrontendEnv(t)
	moduleutil.CreateArticle(t, e.ctx, service.ArticleInput{Title: "Unfinished draft"})
	moduleutil.CreateArticle(t, e.ctx, service.ArticleInput{
		Title:    "About us",
		PostType: model.PostTypePage,
		Status:   model.ArticleStatusPublished,
	})

	for _, path := range []string{"/news/unfinished-draft", "/news/about-us", "/news/missing"} {
		t.Run(path, func(t *testing.T) {
			rec := e.get(t, path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "noindex")
		})
	}
}

func TestFrontend_ArticleBeforeRenderHook(t *testing.T) {
	e := newFrontendEnv(t)
	e.publish(t, "Hooked story", nil)

	e.ctx.Hooks.RegisterFunc(model.HookArticleBeforeRender, "append-note", "test", func(_ context.Context, data any) (any, error) {
		ar := data.(*model.ArticleRender)
		ar.Body += template.HTML(`<aside class="editor-note">Corrected</aside>`)
		return ar, nil
	})

	rec := e.get(t, "/news/hooked-story")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<aside class="editor-note">Corrected</aside>`)
}

func TestFrontend_SectionPagination(t *testing.T) {
	e := newFrontendEnv(t)
	moduleutil.CreateSection(t, e.ctx, service.SectionInput{Name: "World"})
	for i := range SectionPerPage + 1 {
		e.publish(t, fmt.Sprintf("World story %02d", i), nil, "world")
	}

	first := e.get(t, "/section/world")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "news-grid")
	assert.Contains(t, first.Body.String(), `href="/section/world?page=2"`)
	assert.Equal(t, SectionPerPage, strings.Count(first.Body.String(), "news-item--card"))

	second := e.get(t, "/section/world?page=2")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, strings.Count(second.Body.String(), "news-item--card"))
	assert.Contains(t, second.Body.String(), `name="robots" content="noindex`)

	assert.Equal(t, http.StatusNotFound, e.get(t, "/section/world?page=3").Code)
	assert.Equal(t, http.StatusNotFound, e.get(t, "/section/nowhere").Code)
}

func TestFrontend_InactiveSection(t *testing.T) {
	e := newFrontendEnv(t)
	inactive := false
	moduleutil.CreateSection(t, e.ctx, service.SectionInput{Name: "Archive", IsActive: &inactive})

	assert.Equal(t, http.StatusNotFound, e.get(t, "/section/archive").Code)
	assert.Equal(t, http.StatusNotFound, e.get(t, "/section/archive/feed").Code)
}

func TestFrontend_Feeds(t *testing.T) {
	e := newFrontendEnv(t)
	moduleutil.CreateSection(t, e.ctx, service.SectionInput{Name: "Sport"})
	e.publish(t, "Cup final", nil, "sport")
	e.publish(t, "Budget vote", nil)
	moduleutil.CreateArticle(t, e.ctx, service.ArticleInput{Title: "Draft piece"})

	rec := e.get(t, "/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	var titles []string
	for _, item := range feed.Items {
		titles = append(titles, item.Title)
	}
	assert.ElementsMatch(t, []string{"Cup final", "Budget vote"}, titles)

	rec = e.get(t, "/section/sport/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	feed, err = gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Cup final", feed.Items[0].Title)
	assert.Equal(t, "Sport | Daily Ledger", feed.Title)
}

func TestFrontend_Sitemaps(t *testing.T) {
	e := newFrontendEnv(t)
	moduleutil.CreateSection(t, e.ctx, service.SectionInput{Name: "Science"})
	e.publish(t, "Fresh discovery", nil, "science")
	old := time.Now().UTC().Add(-72 * time.Hour)
	moduleutil.CreateArticle(t, e.ctx, service.ArticleInput{
		Title:       "Old discovery",
		Status:      model.ArticleStatusPublished,
		PublishedAt: &old,
	})

	rec := e.get(t, "/news-sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	news := rec.Body.String()
	assert.Contains(t, news, seo.NewsXMLNamespace)
	assert.Contains(t, news, "https://news.example.com/news/fresh-discovery")
	assert.NotContains(t, news, "old-discovery")

	rec = e.get(t, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	full := rec.Body.String()
	assert.Contains(t, full, "https://news.example.com/news/old-discovery")
	assert.Contains(t, full, "https://news.example.com/section/science")
}

func TestFrontend_Robots(t *testing.T) {
	e := newFrontendEnv(t)

	rec := e.get(t, "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /admin")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://news.example.com/news-sitemap.xml")
}

func TestFrontend_UnknownRoute(t *testing.T) {
	e := newFrontendEnv(t)
	rec := e.get(t, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}
