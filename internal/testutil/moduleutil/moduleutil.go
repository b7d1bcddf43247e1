// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduleutil builds a fully wired module.Context for handler and
// module tests.
package moduleutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/newsroom/internal/assets"
	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/config"
	"github.com/olegiv/newsroom/internal/module"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/render"
	"github.com/olegiv/newsroom/internal/scheduler"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/session"
	"github.com/olegiv/newsroom/internal/shortcode"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/testutil"
	"github.com/olegiv/newsroom/web"
)

// TestConfig returns the configuration used by TestModuleContext.
func TestConfig() *config.Config {
	return &config.Config{
		Env:                    "development",
		SiteName:               "Daily Ledger",
		SiteURL:                "https://news.example.com",
		AdminUser:              "admin",
		CachePrefix:            "test:",
		CacheTTL:               3600,
		HomeTemplates:          []string{"featured", "breaking", "remainder"},
		HomePerPage:            10,
		AnalyticsRetentionDays: 90,
		PublishSchedule:        "@every 1m",
		PruneSchedule:          "@daily",
		APIRateLimit:           100,
		APIRateBurst:           100,
	}
}

// TestModuleContext creates a module.Context on a migrated temp database
// with an in-memory cache, every service and the news blocks, shortcodes
// and assets registered. Analytics is left nil.
func TestModuleContext(t *testing.T) *module.Context {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	cfg := TestConfig()
	logger := testutil.TestLoggerSilent()

	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = backend.Close() })
	cacheStore := cache.NewStore(backend, cfg.CachePrefix, logger)

	hooks := module.NewHookRegistry(logger)
	articles := service.NewArticleService(db, cacheStore, cfg.CacheTTLDuration(), hooks, logger)
	sections := service.NewSectionService(db, cacheStore, cfg.CacheTTLDuration(), hooks, logger)

	distributor := multiquery.NewDistributor(articles.Fetch, blocks.RenderArticles, logger)
	blockRegistry := blocks.NewRegistry(logger)
	if err := blocks.RegisterNews(blockRegistry, blocks.NewsDeps{Articles: articles, Distributor: distributor}); err != nil {
		t.Fatalf("registering news blocks: %v", err)
	}
	shortcodes := shortcode.NewRegistry(logger)
	if err := shortcode.RegisterNews(shortcodes, articles, sections); err != nil {
		t.Fatalf("registering news shortcodes: %v", err)
	}

	assetManager := assets.NewManager(web.Static(), "/static", logger)
	if err := assets.RegisterNews(assetManager); err != nil {
		t.Fatalf("registering news assets: %v", err)
	}

	sessions := session.New(db, true)
	renderer, err := render.New(render.Config{
		TemplatesFS: web.TemplatesFS(),
		Sessions:    sessions,
		Assets:      assetManager,
		SiteName:    cfg.SiteName,
	})
	if err != nil {
		t.Fatalf("creating renderer: %v", err)
	}

	return &module.Context{
		DB:         db,
		Store:      store.New(db),
		Logger:     logger,
		Config:     cfg,
		Render:     renderer,
		Sessions:   sessions,
		Hooks:      hooks,
		Cache:      cacheStore,
		Articles:   articles,
		Sections:   sections,
		Events:     service.NewEventService(db, logger),
		Blocks:     blockRegistry,
		Shortcodes: shortcodes,
		Assets:     assetManager,
		Scheduler:  scheduler.New(logger),
	}
}

// Distributor returns a distributor over the context's article service.
func Distributor(ctx *module.Context) *multiquery.Distributor {
	return multiquery.NewDistributor(ctx.Articles.Fetch, blocks.RenderArticles, ctx.Logger)
}

// CreateArticle creates a news article and fails the test on error.
func CreateArticle(t *testing.T, ctx *module.Context, in service.ArticleInput) int64 {
	t.Helper()
	a, err := ctx.Articles.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating article %q: %v", in.Title, err)
	}
	return a.ID
}

// CreateSection creates a section and fails the test on error.
func CreateSection(t *testing.T, ctx *module.Context, in service.SectionInput) int64 {
	t.Helper()
	s, err := ctx.Sections.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating section %q: %v", in.Name, err)
	}
	return s.ID
}

// RunMigrations runs all migrations up for the given module.
func RunMigrations(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for _, mig := range migrations {
		if err := mig.Up(db); err != nil {
			t.Fatalf("migration %d up: %v", mig.Version, err)
		}
	}
}

// RunMigrationsDown rolls back all migrations for the given module.
func RunMigrationsDown(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(db); err != nil {
			t.Fatalf("migration %d down: %v", migrations[i].Version, err)
		}
	}
}
