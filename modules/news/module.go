// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package news is the editorial module of the newsroom. It owns the admin
// metadata panel, the cache invalidation hooks and the periodic jobs that
// publish scheduled articles and prune old analytics and events.
package news

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/badge"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/module"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/version"
)

// Name is the module name used for hooks, jobs and migrations.
const Name = "news"

// Scheduled job names
const (
	JobPublishScheduled = "publish-scheduled"
	JobPruneAnalytics   = "prune-analytics"
	JobPruneEvents      = "prune-events"
)

// Module implements module.Module.
type Module struct {
	module.BaseModule
	ctx  *module.Context
	jobs []string
}

// New creates a new instance of the news module.
func New() *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			Name,
			"1.0.0",
			"Editorial metadata, badges and scheduled publishing for news articles",
		),
	}
}

// CheckPlatform refuses activation on SQLite releases without RETURNING.
func (m *Module) CheckPlatform(ctx *module.Context) error {
	v, err := store.SQLiteVersion(context.Background(), ctx.DB)
	if err != nil {
		return err
	}
	return version.RequireSQLite(v)
}

// Init initializes the module with the given context.
func (m *Module) Init(ctx *module.Context) error {
	m.ctx = ctx
	m.registerHooks()
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.ctx.Logger.Info("news module initialized", "jobs", len(m.jobs))
	return nil
}

// Shutdown removes the module's jobs from the scheduler.
func (m *Module) Shutdown() error {
	if m.ctx == nil {
		return nil
	}
	if m.ctx.Scheduler != nil {
		for _, name := range m.jobs {
			m.ctx.Scheduler.Remove(Name, name)
		}
	}
	m.jobs = nil
	m.ctx.Logger.Info("news module shutting down")
	return nil
}

// RegisterAdminRoutes registers the metadata panel under /admin.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Get("/news", m.handleList)
	r.Get("/news/{id}", m.handleEdit)
	r.Post("/news/{id}", m.handleSaveMeta)
	r.Post("/cache/clear", m.handleClearCache)
}

// TemplateFuncs returns template functions provided by the module.
func (m *Module) TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"newsBadges": func(a *model.Article) template.HTML {
			return badge.AllForArticle(a)
		},
		"newsFlagLabel": func(name string) string {
			f, err := model.ParseFlag(name)
			if err != nil {
				return ""
			}
			return f.Label()
		},
	}
}

// AdminURL returns the admin dashboard URL for the module.
func (m *Module) AdminURL() string {
	return "/admin/news"
}

// Migrations adds the index the publish job scans.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Index articles by status and publish time",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_articles_status_published ON articles(status, published_at)`)
				if err != nil {
					return fmt.Errorf("create idx_articles_status_published: %w", err)
				}
				return nil
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`DROP INDEX IF EXISTS idx_articles_status_published`)
				return err
			},
		},
	}
}

func (m *Module) registerHooks() {
	m.ctx.Hooks.Register(module.HookArticleAfterSave, module.HookHandler{
		Name:     "news_invalidate_on_save",
		Module:   m.Name(),
		Priority: 10,
		Fn: func(ctx context.Context, data any) (any, error) {
			m.invalidate(ctx)
			if saved, ok := data.(*model.ArticleSaved); ok && saved.BecameBreaking() {
				m.logBreaking(ctx, saved.Article)
			}
			return data, nil
		},
	})

	m.ctx.Hooks.Register(module.HookArticleAfterDelete, module.HookHandler{
		Name:     "news_invalidate_on_delete",
		Module:   m.Name(),
		Priority: 10,
		Fn: func(ctx context.Context, data any) (any, error) {
			m.invalidate(ctx)
			return data, nil
		},
	})

	m.ctx.Hooks.Register(module.HookSectionAfterSave, module.HookHandler{
		Name:     "news_invalidate_on_section",
		Module:   m.Name(),
		Priority: 10,
		Fn: func(ctx context.Context, data any) (any, error) {
			m.invalidate(ctx)
			return data, nil
		},
	})
}

// invalidate drops the cached article and section reads.
func (m *Module) invalidate(ctx context.Context) int {
	cleared := 0
	for _, group := range []string{service.GroupArticles, service.GroupSections} {
		if err := m.ctx.Cache.DeleteGroup(ctx, group); err != nil {
			m.ctx.Logger.Warn("news cache invalidation failed", "group", group, "error", err, "category", model.EventCategoryCache)
			continue
		}
		cleared++
	}
	return cleared
}

// logBreaking records newly published breaking news in the event log.
func (m *Module) logBreaking(ctx context.Context, a *model.Article) {
	if m.ctx.Events == nil {
		return
	}
	if err := m.ctx.Events.LogInfo(ctx, model.EventCategoryArticle, "Breaking news published", map[string]any{
		"article_id": a.ID,
		"slug":       a.Slug,
	}); err != nil {
		m.ctx.Logger.Warn("failed to log breaking news event", "error", err)
	}
}
