// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the newsroom configuration from NEWSROOM_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"NEWSROOM_DB_PATH" envDefault:"./data/newsroom.db"`
	ServerHost string `env:"NEWSROOM_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"NEWSROOM_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"NEWSROOM_ENV" envDefault:"development"`
	LogLevel   string `env:"NEWSROOM_LOG_LEVEL" envDefault:"info"`

	SiteName string `env:"NEWSROOM_SITE_NAME" envDefault:"Newsroom"`
	SiteURL  string `env:"NEWSROOM_SITE_URL" envDefault:"http://localhost:8080"`

	// Admin panel credentials. The panel is disabled when no hash is set.
	AdminUser         string `env:"NEWSROOM_ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"NEWSROOM_ADMIN_PASSWORD_HASH"`

	// Cache configuration
	RedisURL     string `env:"NEWSROOM_REDIS_URL"`                             // Optional Redis URL for distributed caching
	CachePrefix  string `env:"NEWSROOM_CACHE_PREFIX" envDefault:"newsroom:"`   // Cache key namespace
	CacheTTL     int    `env:"NEWSROOM_CACHE_TTL" envDefault:"3600"`           // Default cache TTL in seconds
	CacheMaxSize int    `env:"NEWSROOM_CACHE_MAX_SIZE" envDefault:"10000"`     // Max memory cache entries

	// Front page
	HomeTemplates []string `env:"NEWSROOM_HOME_TEMPLATES" envDefault:"featured,breaking,remainder" envSeparator:","`
	HomePerPage   int      `env:"NEWSROOM_HOME_PER_PAGE" envDefault:"10"` // single-template layouts only

	// Analytics
	AnalyticsEnabled       bool   `env:"NEWSROOM_ANALYTICS_ENABLED" envDefault:"true"`
	AnalyticsRetentionDays int    `env:"NEWSROOM_ANALYTICS_RETENTION_DAYS" envDefault:"90"`
	GeoIPDBPath            string `env:"NEWSROOM_GEOIP_DB_PATH"` // Optional GeoLite2-Country database

	// Scheduler
	PublishSchedule string `env:"NEWSROOM_PUBLISH_SCHEDULE" envDefault:"@every 1m"`
	PruneSchedule   string `env:"NEWSROOM_PRUNE_SCHEDULE" envDefault:"@daily"`

	// REST API rate limiting per key
	APIRateLimit float64 `env:"NEWSROOM_API_RATE_LIMIT" envDefault:"10"`
	APIRateBurst int     `env:"NEWSROOM_API_RATE_BURST" envDefault:"20"`

	// Seeding configuration
	DoSeed   bool `env:"NEWSROOM_DO_SEED" envDefault:"true"`
	SeedDemo bool `env:"NEWSROOM_SEED_DEMO" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// AdminEnabled reports whether admin credentials are configured.
func (c Config) AdminEnabled() bool {
	return c.AdminPasswordHash != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// AnalyticsRetention returns the analytics retention window.
func (c Config) AnalyticsRetention() time.Duration {
	return time.Duration(c.AnalyticsRetentionDays) * 24 * time.Hour
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("NEWSROOM_ENV must be development or production, got %q", c.Env)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("NEWSROOM_SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("NEWSROOM_CACHE_TTL must not be negative")
	}
	if c.HomePerPage <= 0 {
		return fmt.Errorf("NEWSROOM_HOME_PER_PAGE must be positive")
	}

	templates := c.HomeTemplates[:0]
	for _, t := range c.HomeTemplates {
		if t = strings.TrimSpace(t); t != "" {
			templates = append(templates, t)
		}
	}
	if len(templates) == 0 {
		return fmt.Errorf("NEWSROOM_HOME_TEMPLATES must name at least one template")
	}
	c.HomeTemplates = templates

	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if !c.IsDevelopment() && !c.AdminEnabled() {
		return fmt.Errorf("NEWSROOM_ADMIN_PASSWORD_HASH is required in production; " +
			"generate one with: newsroom -hash-password <password>")
	}
	return nil
}
