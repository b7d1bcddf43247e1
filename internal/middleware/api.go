// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for API key and admin
// authentication, rate limiting, CSRF protection and response headers.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyAPIKey is the context key for API key data.
const ContextKeyAPIKey ContextKey = "api_key"

// APIError is the JSON error envelope of the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// errAPIKey describes why a bearer key was rejected.
type errAPIKey struct {
	status  int
	code    string
	message string
}

var errNoAPIKey = &errAPIKey{http.StatusUnauthorized, "unauthorized", "Missing Authorization header"}

// lookupAPIKey parses the Authorization header and loads the key. It returns
// errNoAPIKey when the header is absent.
func lookupAPIKey(r *http.Request, queries *store.Queries) (*model.APIKey, *errAPIKey) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errNoAPIKey
	}

	scheme, rawKey, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil, &errAPIKey{http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <api_key>"}
	}
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, &errAPIKey{http.StatusUnauthorized, "unauthorized", "API key is empty"}
	}

	key, err := queries.GetAPIKeyByHash(r.Context(), model.HashAPIKey(rawKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errAPIKey{http.StatusUnauthorized, "unauthorized", "Invalid API key"}
	}
	if err != nil {
		slog.Error("failed to validate API key", "error", err)
		return nil, &errAPIKey{http.StatusInternalServerError, "internal_error", "Failed to validate API key"}
	}

	if !key.IsActive {
		return nil, &errAPIKey{http.StatusUnauthorized, "unauthorized", "API key is inactive"}
	}
	if key.IsExpired() {
		return nil, &errAPIKey{http.StatusUnauthorized, "unauthorized", "API key has expired"}
	}
	return &key, nil
}

// touchAPIKey updates the last used timestamp in a background goroutine.
func touchAPIKey(queries *store.Queries, id int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queries.UpdateAPIKeyLastUsed(ctx, id, time.Now().UTC()); err != nil {
			slog.Warn("failed to update api key last use", "key_id", id, "error", err)
		}
	}()
}

func withAPIKey(r *http.Request, key *model.APIKey) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ContextKeyAPIKey, *key))
}

// APIKeyAuth requires a valid Bearer API key.
func APIKeyAuth(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, apiErr := lookupAPIKey(r, queries)
			if apiErr != nil {
				WriteAPIError(w, apiErr.status, apiErr.code, apiErr.message, nil)
				return
			}
			touchAPIKey(queries, key.ID)
			next.ServeHTTP(w, withAPIKey(r, key))
		})
	}
}

// OptionalAPIKeyAuth adds a valid API key to the context when one is sent.
// Requests without a usable key continue anonymously.
func OptionalAPIKeyAuth(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, apiErr := lookupAPIKey(r, queries)
			if apiErr != nil {
				next.ServeHTTP(w, r)
				return
			}
			touchAPIKey(queries, key.ID)
			next.ServeHTTP(w, withAPIKey(r, key))
		})
	}
}

// GetAPIKey returns the API key of the request, or nil.
func GetAPIKey(r *http.Request) *model.APIKey {
	key, ok := r.Context().Value(ContextKeyAPIKey).(model.APIKey)
	if !ok {
		return nil
	}
	return &key
}

// RequirePermission requires an API key carrying permission. Use it after
// APIKeyAuth.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r)
			if key == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "API key required", nil)
				return
			}
			if !key.HasPermission(permission) {
				WriteAPIError(w, http.StatusForbidden, "forbidden", "API key lacks required permission: "+permission, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limiterCache is a keyed rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the limiter for key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()
	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds drops every limiter once the cache holds more than maxSize.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// APIRateLimit limits requests per API key, falling back to the client IP
// for anonymous requests.
func APIRateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	byKey := newLimiterCache[int64](rps, burst)
	byIP := newLimiterCache[string](rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var limiter *rate.Limiter
			if key := GetAPIKey(r); key != nil {
				limiter = byKey.get(key.ID)
			} else {
				byIP.clearIfExceeds(10000)
				limiter = byIP.get(getClientIP(r))
			}

			if !limiter.Allow() {
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
