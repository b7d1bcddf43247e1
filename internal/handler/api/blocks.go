// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/security"
)

// RenderBlockRequest is the body of POST /blocks/{namespace}/{name}/render.
type RenderBlockRequest struct {
	Attributes map[string]any `json:"attributes"`
	ArticleID  int64          `json:"article_id"`
}

// RenderBlockResponse carries the rendered markup.
type RenderBlockResponse struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

// ListBlocks handles GET /api/v1/blocks
func (h *Handler) ListBlocks(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.cfg.Blocks.List(), nil)
}

// RenderBlock handles POST /api/v1/blocks/{namespace}/{name}/render
// Attribute errors are reported as 422.
func (h *Handler) RenderBlock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "namespace") + "/" + chi.URLParam(r, "name")

	var req RenderBlockRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	if req.ArticleID != 0 && !canReadDrafts(r) {
		a, err := h.cfg.Articles.GetArticle(r.Context(), req.ArticleID)
		if err != nil || !visible(r, a) {
			WriteNotFound(w, "Article not found")
			return
		}
	}

	out, err := h.cfg.Blocks.Render(r.Context(), name, req.Attributes, req.ArticleID)
	if err != nil {
		var unknown *blocks.ErrUnknownBlock
		if errors.As(err, &unknown) {
			WriteNotFound(w, "Block not found")
			return
		}
		if ve, ok := security.AsValidationError(err); ok {
			WriteValidationError(w, ve.Fields)
			return
		}
		h.writeServiceError(w, "block", err)
		return
	}
	WriteSuccess(w, RenderBlockResponse{Name: name, HTML: string(out)}, nil)
}
