// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/testutil"
)

// createTestKey stores a key with perms and returns the raw key.
func createTestKey(t *testing.T, db *sql.DB, perms []string, expiresAt sql.NullTime) (string, model.APIKey) {
	t.Helper()
	raw, prefix, err := model.GenerateAPIKey()
	require.NoError(t, err)

	now := time.Now().UTC()
	key, err := store.New(db).CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:        "test",
		KeyHash:     model.HashAPIKey(raw),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(perms),
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return raw, key
}

// keyEcho writes the ID of the request's API key, or 0.
func keyEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if key := GetAPIKey(r); key != nil {
			id = key.ID
		}
		_ = json.NewEncoder(w).Encode(map[string]int64{"key_id": id})
	})
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestAPIKeyAuth(t *testing.T) {
	db := testutil.TestMemoryDB(t)
	valid, _ := createTestKey(t, db, model.AllPermissions(), sql.NullTime{})
	expired, _ := createTestKey(t, db, model.AllPermissions(), sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true})
	inactive, inactiveKey := createTestKey(t, db, model.AllPermissions(), sql.NullTime{})
	require.NoError(t, store.New(db).DeactivateAPIKey(context.Background(), inactiveKey.ID, time.Now()))

	handler := APIKeyAuth(db)(keyEcho())

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"valid key", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "Missing Authorization header"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "Invalid Authorization header format. Use: Bearer <api_key>"},
		{"empty key", "Bearer  ", http.StatusUnauthorized, "API key is empty"},
		{"unknown key", "Bearer nope", http.StatusUnauthorized, "Invalid API key"},
		{"expired key", "Bearer " + expired, http.StatusUnauthorized, "API key has expired"},
		{"inactive key", "Bearer " + inactive, http.StatusUnauthorized, "API key is inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				e := decodeAPIError(t, rec)
				assert.Equal(t, "unauthorized", e.Error.Code)
				assert.Equal(t, tt.message, e.Error.Message)
			}
		})
	}
}

func TestOptionalAPIKeyAuth(t *testing.T) {
	db := testutil.TestMemoryDB(t)
	raw, key := createTestKey(t, db, []string{model.PermissionArticlesRead}, sql.NullTime{})
	handler := OptionalAPIKeyAuth(db)(keyEcho())

	tests := []struct {
		name   string
		header string
		want   int64
	}{
		{"anonymous", "", 0},
		{"invalid key stays anonymous", "Bearer nope", 0},
		{"valid key", "Bearer " + raw, key.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]int64
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.want, body["key_id"])
		})
	}
}

func TestRequirePermission(t *testing.T) {
	db := testutil.TestMemoryDB(t)
	reader, _ := createTestKey(t, db, []string{model.PermissionArticlesRead}, sql.NullTime{})
	writer, _ := createTestKey(t, db, []string{model.PermissionArticlesWrite}, sql.NullTime{})

	handler := OptionalAPIKeyAuth(db)(RequirePermission(model.PermissionArticlesWrite)(keyEcho()))

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no key", "", http.StatusUnauthorized, "unauthorized"},
		{"missing permission", "Bearer " + reader, http.StatusForbidden, "forbidden"},
		{"granted", "Bearer " + writer, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/articles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeAPIError(t, rec).Error.Code)
			}
		})
	}
}

func TestAPIRateLimit(t *testing.T) {
	handler := APIRateLimit(0.001, 2)(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "limits are per client")
}

func TestAPIRateLimit_PerKey(t *testing.T) {
	handler := APIRateLimit(0.001, 1)(okHandler())

	send := func(id int64) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
		req = withAPIKey(req, &model.APIKey{ID: id})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(1))
	assert.Equal(t, http.StatusTooManyRequests, send(1))
	assert.Equal(t, http.StatusOK, send(2))
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, http.StatusUnprocessableEntity, "validation_failed", "Validation failed", map[string]string{"title": "is required"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	e := decodeAPIError(t, rec)
	assert.Equal(t, "validation_failed", e.Error.Code)
	assert.Equal(t, "is required", e.Error.Details["title"])
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.1:4000", "192.0.2.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": " 203.0.113.9 "}, "192.0.2.1:4000", "203.0.113.9"},
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "192.0.2.1:4000", "198.51.100.2"},
		{"no port", nil, "192.0.2.7", "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
