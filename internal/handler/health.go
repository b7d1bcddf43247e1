// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/middleware"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	cache     cache.Cache // optional
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, c cache.Cache, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: c, version: version, startTime: time.Now()}
}

// HealthStatus represents the overall health status. Only API key holders
// see more than Status.
type HealthStatus struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime,omitempty"`
	Version string           `json:"version,omitempty"`
	Checks  map[string]Check `json:"checks,omitempty"`
	System  *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	MemAlloc     string `json:"mem_alloc"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{"database": h.checkDatabase(r.Context())}
	if h.cache != nil {
		checks["cache"] = h.checkCache(r.Context())
	}

	status := HealthStatus{Status: "healthy"}
	for _, c := range checks {
		if c.Status != "healthy" {
			status.Status = "degraded"
		}
	}

	if middleware.GetAPIKey(r) != nil {
		status.Uptime = time.Since(h.startTime).Round(time.Second).String()
		status.Version = h.version
		status.Checks = checks
		if r.URL.Query().Get("verbose") == "true" {
			status.System = systemInfo()
		}
	}

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, code, status)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: time.Since(start).String()}
	}
	return Check{Status: "healthy", Message: "Connected", Latency: time.Since(start).String()}
}

// checkCache round-trips a key through the cache backend.
func (h *HealthHandler) checkCache(ctx context.Context) Check {
	start := time.Now()
	const key = "health:check"
	if err := h.cache.Set(ctx, key, []byte("1"), time.Minute); err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: time.Since(start).String()}
	}
	if _, err := h.cache.Get(ctx, key); err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: time.Since(start).String()}
	}

	c := Check{Status: "healthy", Latency: time.Since(start).String()}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		s := sp.Stats()
		c.Message = fmt.Sprintf("%d items, %.0f%% hit rate", s.Items, s.HitRate)
	}
	return c
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     formatBytes(m.Alloc),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
