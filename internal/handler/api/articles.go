// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/middleware"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/store"
)

// ArticleRequest is the body of POST and PUT /articles. On update, omitted
// fields keep their stored value, except that a new body without an excerpt
// gets a fresh one, and a present meta object replaces the stored metadata.
type ArticleRequest struct {
	PostType      *string            `json:"post_type,omitempty"`
	Title         *string            `json:"title,omitempty"`
	Slug          *string            `json:"slug,omitempty"`
	Body          *string            `json:"body,omitempty"`
	BodyFormat    *string            `json:"body_format,omitempty"`
	Excerpt       *string            `json:"excerpt,omitempty"`
	FeaturedImage *string            `json:"featured_image,omitempty"`
	AuthorName    *string            `json:"author_name,omitempty"`
	Status        *string            `json:"status,omitempty"`
	PublishedAt   *time.Time         `json:"published_at,omitempty"`
	Meta          *model.ArticleMeta `json:"meta,omitempty"`
	Sections      *[]string          `json:"sections,omitempty"`
}

// apply copies the fields present in req onto in.
func (req ArticleRequest) apply(in *service.ArticleInput) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&in.PostType, req.PostType)
	set(&in.Title, req.Title)
	set(&in.Slug, req.Slug)
	set(&in.Body, req.Body)
	set(&in.BodyFormat, req.BodyFormat)
	set(&in.Excerpt, req.Excerpt)
	if req.Body != nil && req.Excerpt == nil {
		in.Excerpt = ""
	}
	set(&in.FeaturedImage, req.FeaturedImage)
	set(&in.AuthorName, req.AuthorName)
	set(&in.Status, req.Status)
	if req.PublishedAt != nil {
		in.PublishedAt = req.PublishedAt
	}
	if req.Meta != nil {
		in.Meta = req.Meta
	}
	if req.Sections != nil {
		in.Sections = *req.Sections
	}
}

// inputFromArticle returns the editable state of a stored article.
func inputFromArticle(a *model.Article) service.ArticleInput {
	in := service.ArticleInput{
		PostType:      a.PostType,
		Title:         a.Title,
		Slug:          a.Slug,
		Body:          a.Body,
		BodyFormat:    a.BodyFormat,
		Excerpt:       a.Excerpt,
		FeaturedImage: a.FeaturedImage,
		AuthorName:    a.AuthorName,
		Status:        a.Status,
	}
	if a.PublishedAt.Valid {
		t := a.PublishedAt.Time
		in.PublishedAt = &t
	}
	return in
}

// canReadDrafts reports whether the request carries a key allowed to see
// unpublished articles and pages.
func canReadDrafts(r *http.Request) bool {
	key := middleware.GetAPIKey(r)
	return key != nil && key.HasPermission(model.PermissionArticlesRead)
}

// visible reports whether a is readable by the request.
func visible(r *http.Request, a *model.Article) bool {
	return canReadDrafts(r) || (a.IsNews() && a.IsPublished())
}

// ListArticles handles GET /api/v1/articles
// Public: published news only
// With articles:read: status and post_type filters
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePaging(r)

	f := store.ArticleFilter{
		PostType:     model.PostTypeNews,
		Status:       model.ArticleStatusPublished,
		SectionSlug:  q.Get("section"),
		FeaturedOnly: queryBool(q.Get("featured")),
		BreakingOnly: queryBool(q.Get("breaking")),
		Order:        q.Get("order"),
	}
	switch f.Order {
	case "":
		f.Order = store.OrderNewest
	case store.OrderNewest, store.OrderOldest, store.OrderTitle:
	default:
		WriteValidationError(w, map[string]string{"order": "must be newest, oldest or title"})
		return
	}

	status, postType := q.Get("status"), q.Get("post_type")
	if canReadDrafts(r) {
		f.Status, f.PostType = status, postType
	} else if (status != "" && status != model.ArticleStatusPublished) || (postType != "" && postType != model.PostTypeNews) {
		WriteForbidden(w, "API key with articles:read required to view unpublished content")
		return
	}
	if f.Status != "" && !model.IsValidStatus(f.Status) {
		WriteValidationError(w, map[string]string{"status": "unknown status"})
		return
	}
	if f.PostType != "" && !model.IsValidPostType(f.PostType) {
		WriteValidationError(w, map[string]string{"post_type": "unknown post type"})
		return
	}

	ctx := r.Context()
	total, err := h.cfg.Articles.Count(ctx, f)
	if err != nil {
		h.writeServiceError(w, "articles", err)
		return
	}
	f.Offset = int64((page - 1) * perPage)
	f.Limit = int64(perPage)
	items, err := h.cfg.Articles.List(ctx, f)
	if err != nil {
		h.writeServiceError(w, "articles", err)
		return
	}
	if items == nil {
		items = []model.Article{}
	}
	WriteSuccess(w, items, newMeta(total, page, perPage))
}

// GetArticle handles GET /api/v1/articles/{id}
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "article")
	if !ok {
		return
	}
	a, err := h.cfg.Articles.GetArticle(r.Context(), id)
	h.writeArticle(w, r, a, err)
}

// GetArticleBySlug handles GET /api/v1/articles/slug/{slug}
func (h *Handler) GetArticleBySlug(w http.ResponseWriter, r *http.Request) {
	a, err := h.cfg.Articles.GetArticleBySlug(r.Context(), chi.URLParam(r, "slug"))
	h.writeArticle(w, r, a, err)
}

func (h *Handler) writeArticle(w http.ResponseWriter, r *http.Request, a *model.Article, err error) {
	if err != nil {
		h.writeServiceError(w, "article", err)
		return
	}
	if !visible(r, a) {
		WriteNotFound(w, "Article not found")
		return
	}
	WriteSuccess(w, a, nil)
}

// CreateArticle handles POST /api/v1/articles
// Requires articles:write permission
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var in service.ArticleInput
	req.apply(&in)
	a, err := h.cfg.Articles.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, "article", err)
		return
	}
	WriteCreated(w, a)
}

// UpdateArticle handles PUT /api/v1/articles/{id}
// Requires articles:write permission
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "article")
	if !ok {
		return
	}
	var req ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	existing, err := h.cfg.Articles.GetArticle(ctx, id)
	if err != nil {
		h.writeServiceError(w, "article", err)
		return
	}

	in := inputFromArticle(existing)
	req.apply(&in)
	a, err := h.cfg.Articles.Update(ctx, id, in)
	if err != nil {
		h.writeServiceError(w, "article", err)
		return
	}
	WriteSuccess(w, a, nil)
}

// DeleteArticle handles DELETE /api/v1/articles/{id}
// Requires articles:write permission
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "article")
	if !ok {
		return
	}
	if err := h.cfg.Articles.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "article", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
