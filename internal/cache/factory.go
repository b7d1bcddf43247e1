// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Backend names reported by NewCache.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL is the Redis connection URL; empty selects the memory backend.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Namespace is the key prefix the Store writes under. Redis reports
	// item counts for it.
	Namespace string

	// DefaultTTL is the default TTL for cache entries.
	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries for memory cache (0 = unlimited).
	MaxSize int

	// CleanupInterval is the interval for expired entry cleanup.
	CleanupInterval time.Duration
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:       "newsroom:",
		DefaultTTL:      time.Hour,
		MaxSize:         10000,
		CleanupInterval: time.Minute,
	}
}

// NewCache creates the configured backend. When Redis is configured but
// unreachable it falls back to memory and logs a warning, so the returned
// cache is never nil.
func NewCache(cfg Config, logger *slog.Logger) (Cache, string) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(RedisCacheOptions{
			URL:         cfg.RedisURL,
			Namespace:   cfg.Namespace,
			DefaultTTL:  cfg.DefaultTTL,
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
		})
		if err == nil {
			logger.Info("using redis cache", "namespace", cfg.Namespace)
			return rc, BackendRedis
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err, "category", "cache")
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	}), BackendMemory
}
