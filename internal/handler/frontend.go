// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the public site.
package handler

import (
	"context"
	"database/sql"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/analytics"
	"github.com/olegiv/newsroom/internal/assets"
	"github.com/olegiv/newsroom/internal/badge"
	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/render"
	"github.com/olegiv/newsroom/internal/security"
	"github.com/olegiv/newsroom/internal/seo"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/shortcode"
	"github.com/olegiv/newsroom/internal/store"
)

// Listing sizes of the public pages.
const (
	SectionPerPage = 12
	FeedSize       = 30
	SitemapSize    = 1000
)

// Assets enqueued on every public page.
var frontendAssets = []string{assets.HandleNews, assets.HandleNewsTicker}

// FrontendConfig holds the dependencies of FrontendHandler.
type FrontendConfig struct {
	Articles      *service.ArticleService
	Sections      *service.SectionService
	Distributor   *multiquery.Distributor
	Blocks        *blocks.Registry
	Shortcodes    *shortcode.Registry
	Hooks         service.Hooks
	Analytics     *analytics.Recorder // nil disables view tracking
	Renderer      *render.Renderer
	Site          *seo.SiteConfig
	HomeTemplates []multiquery.Template
	HomePerPage   int
	Language      string
	Logger        *slog.Logger
}

// FrontendHandler serves the public news pages, feeds and sitemaps.
type FrontendHandler struct {
	cfg FrontendConfig
	now func() time.Time
}

// NewFrontendHandler creates a FrontendHandler.
func NewFrontendHandler(cfg FrontendConfig) *FrontendHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &FrontendHandler{cfg: cfg, now: time.Now}
}

// Routes mounts the public pages on r.
func (h *FrontendHandler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/news/{slug}", h.Article)
	r.Get("/section/{slug}", h.Section)
	r.Get("/section/{slug}/feed", h.SectionFeed)
	r.Get("/feed", h.Feed)
	r.Get("/sitemap.xml", h.Sitemap)
	r.Get("/news-sitemap.xml", h.NewsSitemap)
	r.Get("/robots.txt", h.Robots)
	r.NotFound(h.NotFound)
}

// HomeData is the view of the front page.
type HomeData struct {
	Content  template.HTML
	Sections []model.Section
}

// ArticleData is the view of an article page.
type ArticleData struct {
	Article     *model.Article
	Body        template.HTML
	Badges      template.HTML
	Byline      template.HTML
	LastUpdated template.HTML
	Ticker      template.HTML
}

// SectionData is the view of a section listing.
type SectionData struct {
	Section    *model.Section
	Children   []model.Section
	Articles   []model.Article
	Listing    template.HTML
	Pagination Pagination
}

// Home renders the front page with the configured multi-query templates.
// The front page has no pagination links. With several templates the
// remainder slot lists every unclaimed article, so ?page and HomePerPage only
// apply to a single-template layout.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	q := multiquery.Query{
		PerPage: int64(h.cfg.HomePerPage),
		Order:   store.OrderNewest,
	}
	if len(h.cfg.HomeTemplates) == 1 {
		q.Page = int64(parsePage(r.URL.Query()))
	}
	content := h.cfg.Distributor.Render(r.Context(), q, h.cfg.HomeTemplates)

	sections, err := h.cfg.Sections.Children(r.Context(), "")
	if err != nil {
		h.cfg.Logger.Error("failed to load sections", "error", err)
	}

	meta := seo.BuildHomeMeta(h.cfg.Site)
	h.render(w, r, http.StatusOK, "frontend/home", meta, HomeData{Content: content, Sections: sections})
}

// Article renders a published news article.
func (h *FrontendHandler) Article(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.cfg.Articles.GetArticleBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.lookupFailed(w, r, "article", err)
		return
	}
	if !a.IsNews() || !a.IsPublished() {
		h.NotFound(w, r)
		return
	}

	body, err := security.RenderBody(a.Body, a.BodyFormat)
	if err != nil {
		h.cfg.Logger.Error("failed to render article body", "article_id", a.ID, "error", err)
		body = ""
	}
	body = h.cfg.Shortcodes.Expand(ctx, body)
	body = h.beforeRender(ctx, a, body)

	data := ArticleData{
		Article:     a,
		Body:        body,
		Badges:      badge.AllForArticle(a),
		Byline:      h.block(ctx, "byline", map[string]any{"prefix": "By"}, a.ID),
		LastUpdated: h.block(ctx, "last-updated", map[string]any{"prefix": "Updated"}, a.ID),
		Ticker:      h.cfg.Shortcodes.Expand(ctx, "[breaking_ticker count=5]"),
	}

	if h.cfg.Analytics != nil {
		h.cfg.Analytics.RecordRequest(a.ID, r)
	}

	meta := seo.BuildArticleMeta(a, h.cfg.Site)
	h.render(w, r, http.StatusOK, "frontend/article", meta, data)
}

// beforeRender passes the body through the article.before_render hook.
func (h *FrontendHandler) beforeRender(ctx context.Context, a *model.Article, body template.HTML) template.HTML {
	if h.cfg.Hooks == nil {
		return body
	}
	out, err := h.cfg.Hooks.Call(ctx, model.HookArticleBeforeRender, &model.ArticleRender{Article: a, Body: body})
	if err != nil {
		h.cfg.Logger.Error("article.before_render failed", "article_id", a.ID, "error", err)
		return body
	}
	if ar, ok := out.(*model.ArticleRender); ok {
		return ar.Body
	}
	return body
}

// block renders a news block for the article, yielding nothing on error.
func (h *FrontendHandler) block(ctx context.Context, name string, attrs map[string]any, articleID int64) template.HTML {
	if h.cfg.Blocks == nil {
		return ""
	}
	out, err := h.cfg.Blocks.Render(ctx, blocks.Namespace+"/"+name, attrs, articleID)
	if err != nil {
		h.cfg.Logger.Warn("block render failed", "block", name, "error", err)
		return ""
	}
	return out
}

// Section renders a paginated section listing.
func (h *FrontendHandler) Section(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	section, err := h.cfg.Sections.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.lookupFailed(w, r, "section", err)
		return
	}
	if !section.IsActive {
		h.NotFound(w, r)
		return
	}

	filter := publishedNews()
	filter.SectionSlug = section.Slug

	total, err := h.cfg.Articles.Count(ctx, filter)
	if err != nil {
		logAndInternalError(w, "failed to count section articles", "section", section.Slug, "error", err)
		return
	}

	page := parsePage(r.URL.Query())
	pagination := BuildPagination(page, total, SectionPerPage, section.URL(), r.URL.Query())
	if page > pagination.TotalPages {
		h.NotFound(w, r)
		return
	}

	filter.Offset = pagination.Offset()
	filter.Limit = SectionPerPage
	items, err := h.cfg.Articles.List(ctx, filter)
	if err != nil {
		logAndInternalError(w, "failed to list section articles", "section", section.Slug, "error", err)
		return
	}

	listing, err := blocks.RenderFragment("grid", items)
	if err != nil {
		h.cfg.Logger.Error("failed to render section listing", "section", section.Slug, "error", err)
	}

	children, err := h.cfg.Sections.Children(ctx, section.Slug)
	if err != nil {
		h.cfg.Logger.Error("failed to load child sections", "section", section.Slug, "error", err)
	}

	meta := seo.BuildSectionMeta(section, page, h.cfg.Site)
	h.render(w, r, http.StatusOK, "frontend/section", meta, SectionData{
		Section:    section,
		Children:   children,
		Articles:   items,
		Listing:    listing,
		Pagination: pagination,
	})
}

// Feed serves the RSS feed of the latest news.
func (h *FrontendHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, r, nil)
}

// SectionFeed serves the RSS feed of one section.
func (h *FrontendHandler) SectionFeed(w http.ResponseWriter, r *http.Request) {
	section, err := h.cfg.Sections.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.lookupFailed(w, r, "section", err)
		return
	}
	if !section.IsActive {
		h.NotFound(w, r)
		return
	}
	h.writeFeed(w, r, section)
}

func (h *FrontendHandler) writeFeed(w http.ResponseWriter, r *http.Request, section *model.Section) {
	filter := publishedNews()
	filter.Limit = FeedSize
	opts := seo.FeedOptions{Path: "/", Language: h.cfg.Language, Generator: "newsroom"}
	if section != nil {
		filter.SectionSlug = section.Slug
		opts.Path = section.URL()
		opts.Title = section.Name + " | " + h.cfg.Site.SiteName
		opts.Description = section.Description
	}

	items, err := h.cfg.Articles.List(r.Context(), filter)
	if err != nil {
		logAndInternalError(w, "failed to list feed articles", "error", err)
		return
	}
	data, err := seo.GenerateRSS(h.cfg.Site, opts, items)
	if err != nil {
		logAndInternalError(w, "failed to generate feed", "error", err)
		return
	}
	writeXML(w, "application/rss+xml; charset=utf-8", data)
}

// NewsSitemap serves the Google News sitemap of the last 48 hours.
func (h *FrontendHandler) NewsSitemap(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	filter := publishedNews()
	filter.PublishedSince = now.Add(-seo.NewsSitemapWindow)
	filter.Limit = SitemapSize

	items, err := h.cfg.Articles.List(r.Context(), filter)
	if err != nil {
		logAndInternalError(w, "failed to list news sitemap articles", "error", err)
		return
	}
	data, err := seo.GenerateNewsSitemap(h.cfg.Site, h.cfg.Language, items, now)
	if err != nil {
		logAndInternalError(w, "failed to generate news sitemap", "error", err)
		return
	}
	writeXML(w, "application/xml; charset=utf-8", data)
}

// Sitemap serves the full sitemap of sections and recent articles.
func (h *FrontendHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	filter := publishedNews()
	filter.Limit = SitemapSize

	items, err := h.cfg.Articles.List(r.Context(), filter)
	if err != nil {
		logAndInternalError(w, "failed to list sitemap articles", "error", err)
		return
	}
	sections, err := h.cfg.Sections.List(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list sitemap sections", "error", err)
		return
	}
	data, err := seo.GenerateSitemap(h.cfg.Site, items, sections)
	if err != nil {
		logAndInternalError(w, "failed to generate sitemap", "error", err)
		return
	}
	writeXML(w, "application/xml; charset=utf-8", data)
}

// Robots serves robots.txt.
func (h *FrontendHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seo.GenerateRobots(seo.RobotsConfig{SiteURL: h.cfg.Site.SiteURL})))
}

// NotFound renders the 404 page.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	meta := &seo.Meta{Title: "Page not found | " + h.cfg.Site.SiteName, Robots: "noindex,follow"}
	h.render(w, r, http.StatusNotFound, "frontend/404", meta, nil)
}

// lookupFailed maps a failed lookup to 404 or 500.
func (h *FrontendHandler) lookupFailed(w http.ResponseWriter, r *http.Request, entity string, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		h.NotFound(w, r)
		return
	}
	logAndInternalError(w, "failed to load "+entity, "path", r.URL.Path, "error", err)
}

func (h *FrontendHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, meta *seo.Meta, data any) {
	err := h.cfg.Renderer.RenderStatus(w, r, status, name, render.TemplateData{
		Title:       meta.Title,
		Description: meta.Description,
		Canonical:   meta.Canonical,
		Meta:        meta,
		Data:        data,
		Assets:      frontendAssets,
	})
	if err != nil {
		logAndInternalError(w, "failed to render page", "template", name, "error", err)
	}
}

func publishedNews() store.ArticleFilter {
	return store.ArticleFilter{
		PostType: model.PostTypeNews,
		Status:   model.ArticleStatusPublished,
		Order:    store.OrderNewest,
	}
}

func writeXML(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}
