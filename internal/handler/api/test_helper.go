// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/middleware"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/testutil"
)

// testEnv is an API router over an in-memory database.
type testEnv struct {
	db       *sql.DB
	articles *service.ArticleService
	sections *service.SectionService
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.TestMemoryDB(t)
	logger := testutil.TestLoggerSilent()

	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = backend.Close() })
	c := cache.NewStore(backend, "api-test:", logger)

	articles := service.NewArticleService(db, c, time.Hour, nil, logger)
	sections := service.NewSectionService(db, c, time.Hour, nil, logger)

	registry := blocks.NewRegistry(logger)
	distributor := multiquery.NewDistributor(articles.Fetch, blocks.RenderArticles, logger)
	if err := blocks.RegisterNews(registry, blocks.NewsDeps{Articles: articles, Distributor: distributor}); err != nil {
		t.Fatalf("registering blocks: %v", err)
	}

	h := NewHandler(Config{
		DB:       db,
		Articles: articles,
		Sections: sections,
		Blocks:   registry,
		Logger:   logger,
	})
	return &testEnv{db: db, articles: articles, sections: sections, router: h.Routes()}
}

// createKey stores an API key with perms and returns the raw key.
func (e *testEnv) createKey(t *testing.T, perms ...string) string {
	t.Helper()
	raw, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	now := time.Now().UTC()
	_, err = store.New(e.db).CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:        "api test",
		KeyHash:     model.HashAPIKey(raw),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(perms),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	return raw
}

// do sends a request through the API router. An empty key sends none.
func (e *testEnv) do(t *testing.T, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// article creates an article directly through the service.
func (e *testEnv) article(t *testing.T, in service.ArticleInput) *model.Article {
	t.Helper()
	a, err := e.articles.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating article %q: %v", in.Title, err)
	}
	return a
}

// dataResponse is a generic wrapper for API responses with a "data" field.
type dataResponse[T any] struct {
	Data T `json:"data"`
}

// listResponse is a generic wrapper for API list responses with data and meta.
type listResponse[T any] struct {
	Data []T   `json:"data"`
	Meta *Meta `json:"meta"`
}

// unmarshalData unmarshals a JSON response body into the specified type.
func unmarshalData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp dataResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v\n%s", err, w.Body.String())
	}
	return resp.Data
}

// unmarshalList unmarshals a JSON list response body into the specified type.
func unmarshalList[T any](t *testing.T, w *httptest.ResponseRecorder) ([]T, *Meta) {
	t.Helper()
	var resp listResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v\n%s", err, w.Body.String())
	}
	return resp.Data, resp.Meta
}

// assertStatusCode checks that the response has the expected status code.
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, w.Code, w.Body.String())
	}
}

// assertErrorResponse unmarshals and validates an error response.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) middleware.APIError {
	t.Helper()
	var resp middleware.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Code != expectedCode {
		t.Errorf("expected code '%s', got %s", expectedCode, resp.Error.Code)
	}
	return resp
}
