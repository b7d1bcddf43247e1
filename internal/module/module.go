// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package module provides the extension system of the newsroom. Modules can
// register routes, admin routes, template functions, hooks and migrations
// to integrate with the core application.
package module

import (
	"database/sql"
	"html/template"
	"log/slog"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/analytics"
	"github.com/olegiv/newsroom/internal/assets"
	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/config"
	"github.com/olegiv/newsroom/internal/render"
	"github.com/olegiv/newsroom/internal/scheduler"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/shortcode"
	"github.com/olegiv/newsroom/internal/store"
)

// Context provides access to application services for modules. It is built
// once in main and shared by every module.
type Context struct {
	DB         *sql.DB
	Store      *store.Queries
	Logger     *slog.Logger
	Config     *config.Config
	Render     *render.Renderer
	Sessions   *scs.SessionManager
	Hooks      *HookRegistry
	Cache      *cache.Store
	Articles   *service.ArticleService
	Sections   *service.SectionService
	Events     *service.EventService
	Blocks     *blocks.Registry
	Shortcodes *shortcode.Registry
	Assets     *assets.Manager
	Analytics  *analytics.Recorder // nil when analytics is disabled
	Scheduler  *scheduler.Scheduler
}

// Module defines the interface that all modules must implement.
type Module interface {
	// Name returns the module name.
	Name() string
	// Version returns the module version.
	Version() string
	// Description returns the module description.
	Description() string
	// Dependencies returns the list of module dependencies.
	Dependencies() []string

	// Init initializes the module with the given context.
	Init(ctx *Context) error
	// Shutdown performs cleanup when the module is shutting down.
	Shutdown() error

	// RegisterRoutes registers public routes for the module.
	RegisterRoutes(r chi.Router)

	// RegisterAdminRoutes registers admin routes for the module.
	RegisterAdminRoutes(r chi.Router)

	// TemplateFuncs returns template functions provided by the module.
	TemplateFuncs() template.FuncMap

	// Migrations returns migrations for the module.
	Migrations() []Migration

	// AdminURL returns the admin dashboard URL for the module, or "".
	AdminURL() string
}

// PlatformChecker is an optional interface for modules that need a minimum
// platform. A failing check aborts activation of the whole application.
type PlatformChecker interface {
	CheckPlatform(ctx *Context) error
}

// Migration represents a database migration for a module.
type Migration struct {
	Version     int64
	Description string
	Up          func(db *sql.DB) error
	Down        func(db *sql.DB) error
}

// BaseModule provides no-op implementations of the Module interface.
// Modules embed it and override what they need.
type BaseModule struct {
	name        string
	version     string
	description string
	ctx         *Context
}

// NewBaseModule creates a new BaseModule with the given metadata.
func NewBaseModule(name, version, description string) BaseModule {
	return BaseModule{
		name:        name,
		version:     version,
		description: description,
	}
}

func (m *BaseModule) Name() string                     { return m.name }
func (m *BaseModule) Version() string                  { return m.version }
func (m *BaseModule) Description() string              { return m.description }
func (m *BaseModule) Dependencies() []string           { return nil }
func (m *BaseModule) Shutdown() error                  { return nil }
func (m *BaseModule) RegisterRoutes(_ chi.Router)      {}
func (m *BaseModule) RegisterAdminRoutes(_ chi.Router) {}
func (m *BaseModule) TemplateFuncs() template.FuncMap  { return nil }
func (m *BaseModule) Migrations() []Migration          { return nil }
func (m *BaseModule) AdminURL() string                 { return "" }

// Init stores the context for later use by the embedding module.
func (m *BaseModule) Init(ctx *Context) error {
	m.ctx = ctx
	return nil
}

// Context returns the module context (for use by embedded modules).
func (m *BaseModule) Context() *Context { return m.ctx }
