// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/middleware"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/testutil"
)

func newHealthHandler(t *testing.T) (*HealthHandler, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	return NewHealthHandler(db, c, "1.2.3"), cleanup
}

func doHealth(t *testing.T, h *HealthHandler, target string, withKey bool) (int, HealthStatus) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withKey {
		key := model.APIKey{ID: 1, Name: "monitor", IsActive: true}
		req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyAPIKey, key))
	}
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return rec.Code, status
}

func TestHealth_Anonymous(t *testing.T) {
	h, cleanup := newHealthHandler(t)
	defer cleanup()

	code, status := doHealth(t, h, "/health", false)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Version, "details are hidden without an API key")
	assert.Nil(t, status.Checks)
}

func TestHealth_WithAPIKey(t *testing.T) {
	h, cleanup := newHealthHandler(t)
	defer cleanup()

	code, status := doHealth(t, h, "/health?verbose=true", true)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", status.Version)
	assert.NotEmpty(t, status.Uptime)
	require.Contains(t, status.Checks, "database")
	require.Contains(t, status.Checks, "cache")
	assert.Equal(t, "healthy", status.Checks["database"].Status)
	assert.Equal(t, "healthy", status.Checks["cache"].Status)
	assert.Contains(t, status.Checks["cache"].Message, "hit rate")
	require.NotNil(t, status.System)
	assert.NotEmpty(t, status.System.GoVersion)
}

func TestHealth_Degraded(t *testing.T) {
	h, cleanup := newHealthHandler(t)
	cleanup()

	code, status := doHealth(t, h, "/health", true)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["database"].Status)
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:                    "512 B",
		2048:                   "2.00 KB",
		5 * 1024 * 1024:        "5.00 MB",
		3 * 1024 * 1024 * 1024: "3.00 GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatBytes(in))
	}
}
