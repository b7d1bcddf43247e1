// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store namespaces a backend under a key prefix and stores JSON values.
// Typed access goes through the package-level Get, Set and Remember.
type Store struct {
	backend Cache
	prefix  string
	group   singleflight.Group
	logger  *slog.Logger
}

// NewStore wraps backend so every key is written as prefix+key.
func NewStore(backend Cache, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, prefix: prefix, logger: logger}
}

// Key returns the backend key for key.
func (s *Store) Key(key string) string {
	return s.prefix + key
}

// Delete removes one key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.Key(key))
}

// DeleteGroup removes every key that starts with group.
func (s *Store) DeleteGroup(ctx context.Context, group string) error {
	return s.backend.DeleteByPrefix(ctx, s.Key(group))
}

// Get returns the cached value for key, or def when it is missing or
// cannot be decoded.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	v, ok := lookup[T](ctx, s, key)
	if !ok {
		return def
	}
	return v
}

// Set stores v under key for ttl. A zero ttl uses the backend default.
func Set[T any](ctx context.Context, s *Store, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.Key(key), data, ttl)
}

// Remember returns the cached value for key. On a miss it calls fn, stores the
// result for ttl and returns it. Concurrent callers for the same key share a
// single fn call. Errors from fn are returned and nothing is stored.
func Remember[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, s, key); ok {
		return v, nil
	}

	res, err, _ := s.group.Do(s.Key(key), func() (any, error) {
		if v, ok := lookup[T](ctx, s, key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		if err := Set(ctx, s, key, v, ttl); err != nil {
			s.logger.Warn("cache write failed", "key", s.Key(key), "error", err, "category", "cache")
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, errors.New("cache: shared result has unexpected type for " + key)
	}
	return v, nil
}

func lookup[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var v T
	data, err := s.backend.Get(ctx, s.Key(key))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cache read failed", "key", s.Key(key), "error", err, "category", "cache")
		}
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}
