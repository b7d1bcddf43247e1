// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/auth"
)

func adminEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(AdminUser(r)))
	})
}

func TestAdminAuth(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	handler := AdminAuth(AdminAuthConfig{User: "editor", PasswordHash: hash})(adminEcho())

	tests := []struct {
		name      string
		user      string
		pass      string
		basic     bool
		status    int
		challenge bool
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized, true},
		{"wrong password", "editor", "battery staple", true, http.StatusUnauthorized, true},
		{"wrong user", "admin", "correct horse", true, http.StatusUnauthorized, true},
		{"valid", "editor", "correct horse", true, http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/news", nil)
			if tt.basic {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.challenge, rec.Header().Get("WWW-Authenticate") != "")
			if tt.status == http.StatusOK {
				assert.Equal(t, "editor", rec.Body.String())
			}
		})
	}
}

func TestAdminAuth_Disabled(t *testing.T) {
	handler := AdminAuth(AdminAuthConfig{User: "editor"})(adminEcho())

	req := httptest.NewRequest(http.MethodGet, "/admin/news", nil)
	req.SetBasicAuth("editor", "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminAuth_Lockout(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	lp, _ := newTestLoginProtection(t, 2)
	handler := AdminAuth(AdminAuthConfig{User: "editor", PasswordHash: hash, Protection: lp})(adminEcho())

	send := func(pass string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/news", nil)
		req.RemoteAddr = "198.51.100.7:5000"
		req.SetBasicAuth("editor", pass)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("nope"))
	assert.Equal(t, http.StatusUnauthorized, send("nope"))
	assert.Equal(t, http.StatusTooManyRequests, send("correct horse"), "locked IPs are refused even with valid credentials")
}

func TestAdminAuth_SuccessClearsFailures(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	lp, _ := newTestLoginProtection(t, 3)
	handler := AdminAuth(AdminAuthConfig{User: "editor", PasswordHash: hash, Protection: lp})(adminEcho())

	req := httptest.NewRequest(http.MethodGet, "/admin/news", nil)
	req.RemoteAddr = "198.51.100.8:5000"
	req.SetBasicAuth("editor", "nope")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, lp.HasFailures("198.51.100.8"))

	req = httptest.NewRequest(http.MethodGet, "/admin/news", nil)
	req.RemoteAddr = "198.51.100.8:5000"
	req.SetBasicAuth("editor", "correct horse")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, lp.HasFailures("198.51.100.8"))
}

func TestAdminUser_Empty(t *testing.T) {
	assert.Empty(t, AdminUser(httptest.NewRequest(http.MethodGet, "/", nil)))
}
