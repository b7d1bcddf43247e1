// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/service"
)

// SectionRequest is the body of POST and PUT /sections. On update, omitted
// fields keep their stored value; parent_id 0 makes the section top-level.
type SectionRequest struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	SortOrder   *int64  `json:"sort_order,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (req SectionRequest) apply(in *service.SectionInput) {
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Slug != nil {
		in.Slug = *req.Slug
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.ParentID != nil {
		in.ParentID = req.ParentID
		if *req.ParentID == 0 {
			in.ParentID = nil
		}
	}
	if req.SortOrder != nil {
		in.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		in.IsActive = req.IsActive
	}
}

// ListSections handles GET /api/v1/sections
// Returns a flat list, or the nested tree with ?tree=1
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if queryBool(r.URL.Query().Get("tree")) {
		tree, err := h.cfg.Sections.Tree(ctx)
		if err != nil {
			h.writeServiceError(w, "sections", err)
			return
		}
		if tree == nil {
			tree = []*model.Section{}
		}
		WriteSuccess(w, tree, nil)
		return
	}

	list, err := h.cfg.Sections.List(ctx)
	if err != nil {
		h.writeServiceError(w, "sections", err)
		return
	}
	if list == nil {
		list = []model.Section{}
	}
	WriteSuccess(w, list, nil)
}

// GetSection handles GET /api/v1/sections/{id}
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "section")
	if !ok {
		return
	}
	sec, err := h.cfg.Sections.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "section", err)
		return
	}
	WriteSuccess(w, sec, nil)
}

// CreateSection handles POST /api/v1/sections
// Requires sections:write permission
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var in service.SectionInput
	req.apply(&in)

	sec, err := h.cfg.Sections.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, "section", err)
		return
	}
	WriteCreated(w, sec)
}

// UpdateSection handles PUT /api/v1/sections/{id}
// Requires sections:write permission
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "section")
	if !ok {
		return
	}
	var req SectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	existing, err := h.cfg.Sections.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, "section", err)
		return
	}
	in := service.SectionInput{
		Name:        existing.Name,
		Slug:        existing.Slug,
		Description: existing.Description,
		SortOrder:   existing.SortOrder,
	}
	if existing.ParentID.Valid {
		parent := existing.ParentID.Int64
		in.ParentID = &parent
	}
	req.apply(&in)

	sec, err := h.cfg.Sections.Update(ctx, id, in)
	if err != nil {
		h.writeServiceError(w, "section", err)
		return
	}
	WriteSuccess(w, sec, nil)
}

// DeleteSection handles DELETE /api/v1/sections/{id}
// Requires sections:write permission
func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "section")
	if !ok {
		return
	}
	if err := h.cfg.Sections.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "section", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
