// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API of the newsroom under /api/v1.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/middleware"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/security"
	"github.com/olegiv/newsroom/internal/service"
)

// Version is reported by GET /api/v1/status.
const Version = "v1"

// Pagination limits of list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Config holds the dependencies of Handler.
type Config struct {
	DB        *sql.DB
	Articles  *service.ArticleService
	Sections  *service.SectionService
	Blocks    *blocks.Registry
	Logger    *slog.Logger
	RateLimit float64 // requests per second per key or IP, 0 disables
	RateBurst int
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	cfg Config
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{cfg: cfg}
}

// Routes returns the /api/v1 router. Every route accepts an optional key;
// writes require a key with the matching permission.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.OptionalAPIKeyAuth(h.cfg.DB))
	if h.cfg.RateLimit > 0 {
		r.Use(middleware.APIRateLimit(h.cfg.RateLimit, h.cfg.RateBurst))
	}

	r.Get("/status", h.Status)
	r.With(middleware.APIKeyAuth(h.cfg.DB)).Get("/auth", h.AuthInfo)

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", h.ListArticles)
		r.Get("/{id}", h.GetArticle)
		r.Get("/slug/{slug}", h.GetArticleBySlug)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(model.PermissionArticlesWrite))
			r.Post("/", h.CreateArticle)
			r.Put("/{id}", h.UpdateArticle)
			r.Delete("/{id}", h.DeleteArticle)
		})
	})

	r.Route("/sections", func(r chi.Router) {
		r.Get("/", h.ListSections)
		r.Get("/{id}", h.GetSection)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(model.PermissionSectionsWrite))
			r.Post("/", h.CreateSection)
			r.Put("/{id}", h.UpdateSection)
			r.Delete("/{id}", h.DeleteSection)
		})
	})

	r.Get("/blocks", h.ListBlocks)
	r.Post("/blocks/{namespace}/{name}/render", h.RenderBlock)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})
	return r
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

func newMeta(total int64, page, perPage int) *Meta {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Meta{Total: total, Page: page, PerPage: perPage, Pages: pages}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeServiceError maps a service error to its API response: validation
// failures are 422, missing rows 404 and everything else 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, entity string, err error) {
	if ve, ok := security.AsValidationError(err); ok {
		WriteValidationError(w, ve.Fields)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		WriteNotFound(w, capitalizeFirst(entity)+" not found")
		return
	}
	h.cfg.Logger.Error("api request failed", "entity", entity, "error", err)
	WriteInternalError(w, "Failed to process "+entity)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: Version}, nil)
}

// AuthInfo returns information about the authenticated API key.
func (h *Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r)

	type AuthInfoResponse struct {
		KeyPrefix   string   `json:"key_prefix"`
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
	}
	WriteSuccess(w, AuthInfoResponse{
		KeyPrefix:   apiKey.KeyPrefix,
		Name:        apiKey.Name,
		Permissions: apiKey.GetPermissions(),
	}, nil)
}

// decodeJSON decodes the request body into v, writing 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

// parseID reads the {id} URL parameter, writing 400 when it is invalid.
func parseID(w http.ResponseWriter, r *http.Request, entity string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}

// parsePaging reads page and per_page with defaults and bounds.
func parsePaging(r *http.Request) (page, perPage int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = DefaultPerPage
	}
	return page, min(perPage, MaxPerPage)
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
