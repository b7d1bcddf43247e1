// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveSecure(cfg SecurityHeadersConfig, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	SecurityHeaders(cfg)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		isDev    bool
		wantHSTS bool
	}{
		{"production mode enables HSTS", false, true},
		{"development mode disables HSTS", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveSecure(DefaultSecurityHeadersConfig(tt.isDev), "/")

			assert.Equal(t, tt.wantHSTS, rec.Header().Get("Strict-Transport-Security") != "")
			assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
			assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
			assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
		})
	}
}

func TestSecurityHeaders_ExcludePaths(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	cfg.ExcludePaths = []string{"/api/"}

	tests := []struct {
		path        string
		wantHeaders bool
	}{
		{"/", true},
		{"/news/election-night", true},
		{"/api/v1/articles", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serveSecure(cfg, tt.path)
			assert.Equal(t, tt.wantHeaders, rec.Header().Get("Content-Security-Policy") != "")
		})
	}
}

func TestSecurityHeaders_HSTSOptions(t *testing.T) {
	cfg := SecurityHeadersConfig{
		HSTSMaxAge:            63072000,
		HSTSIncludeSubDomains: true,
		HSTSPreload:           true,
	}
	rec := serveSecure(cfg, "/")
	assert.Equal(t, "max-age=63072000; includeSubDomains; preload", rec.Header().Get("Strict-Transport-Security"))
}

func TestBuildCSP(t *testing.T) {
	csp := buildCSP(map[string]string{
		"img-src":                   "'self' data:",
		"default-src":               "'self'",
		"script-src":                "'self'",
	})
	assert.Equal(t, "default-src 'self'; script-src 'self'; img-src 'self' data:", csp)
}

func TestBuildPermissionsPolicy(t *testing.T) {
	got := buildPermissionsPolicy(map[string]string{"usb": "()", "camera": "()"})
	assert.Equal(t, "camera=(), usb=()", got)
}
