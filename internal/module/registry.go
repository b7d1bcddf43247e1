// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Registry manages module registration and lifecycle.
type Registry struct {
	modules      map[string]Module
	order        []string // initialization order
	activeStatus map[string]bool
	ctx          *Context
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules:      make(map[string]Module),
		order:        make([]string, 0),
		activeStatus: make(map[string]bool),
		logger:       logger,
	}
}

// Register adds a module. Modules initialize in registration order.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered", "name", name, "version", m.Version())
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// List returns all registered modules in registration order.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.modules[name])
	}
	return modules
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// InitAll checks dependencies and platform requirements, runs module
// migrations, loads the active flags and initializes every module.
func (r *Registry) InitAll(ctx *Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	if err := r.checkDependencies(); err != nil {
		return err
	}

	// A platform below a module's minimum aborts activation before any
	// module touches the database.
	for _, name := range r.order {
		if pc, ok := r.modules[name].(PlatformChecker); ok {
			if err := pc.CheckPlatform(ctx); err != nil {
				r.logger.Error("module platform check failed", "module", name, "error", err)
				return fmt.Errorf("module %q cannot be activated: %w", name, err)
			}
		}
	}

	if err := r.runAllMigrations(ctx.DB); err != nil {
		return err
	}
	if err := r.loadActiveStatus(ctx.DB); err != nil {
		return fmt.Errorf("loading module active status: %w", err)
	}
	if ctx.Hooks != nil {
		ctx.Hooks.SetIsModuleActive(r.IsActive)
	}

	for _, name := range r.order {
		r.logger.Info("initializing module", "name", name, "active", r.IsActive(name))
		if err := r.modules[name].Init(ctx); err != nil {
			return fmt.Errorf("initializing module %q: %w", name, err)
		}
	}
	return nil
}

// checkDependencies verifies that all module dependencies are registered.
func (r *Registry) checkDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		for _, dep := range r.modules[name].Dependencies() {
			if _, ok := r.modules[dep]; !ok {
				return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
			}
		}
	}
	return nil
}

// runAllMigrations applies pending module migrations in version order of
// declaration.
func (r *Registry) runAllMigrations(db *sql.DB) error {
	if err := ensureModuleTables(db); err != nil {
		return fmt.Errorf("ensuring module tables: %w", err)
	}

	for _, name := range r.order {
		migrations := r.modules[name].Migrations()
		if len(migrations) == 0 {
			continue
		}

		for _, mig := range migrations {
			applied, err := isMigrationApplied(db, name, mig.Version)
			if err != nil {
				return fmt.Errorf("checking migration status for %s v%d: %w", name, mig.Version, err)
			}
			if applied {
				continue
			}

			r.logger.Info("applying module migration", "module", name, "version", mig.Version, "description", mig.Description)
			if err := mig.Up(db); err != nil {
				return fmt.Errorf("running migration %s v%d: %w", name, mig.Version, err)
			}
			if _, err := db.Exec(
				"INSERT INTO module_migrations (module, version, applied_at) VALUES (?, ?, ?)",
				name, mig.Version, time.Now().UTC(),
			); err != nil {
				return fmt.Errorf("recording migration %s v%d: %w", name, mig.Version, err)
			}
		}
	}
	return nil
}

// ensureModuleTables creates the bookkeeping tables. They are module-owned
// so they live outside the goose migrations.
func ensureModuleTables(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS module_migrations (
			module TEXT NOT NULL,
			version INTEGER NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (module, version)
		)
	`); err != nil {
		return err
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS modules (
			name TEXT PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func isMigrationApplied(db *sql.DB, module string, version int64) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM module_migrations WHERE module = ? AND version = ?",
		module, version,
	).Scan(&count)
	return count > 0, err
}

// loadActiveStatus reads the active flags. Modules seen for the first time
// are inserted as active.
func (r *Registry) loadActiveStatus(db *sql.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		var active bool
		err := db.QueryRow("SELECT is_active FROM modules WHERE name = ?", name).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := db.Exec("INSERT INTO modules (name, is_active) VALUES (?, 1)", name); err != nil {
				return fmt.Errorf("inserting module %s: %w", name, err)
			}
			r.activeStatus[name] = true
			continue
		}
		if err != nil {
			return fmt.Errorf("loading active status for module %s: %w", name, err)
		}
		r.activeStatus[name] = active
	}
	return nil
}

// IsActive returns whether a module is active. Unknown modules count as
// active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active, ok := r.activeStatus[name]
	return !ok || active
}

// SetActive sets a module's active status and persists it.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; !exists {
		return fmt.Errorf("module %q not registered", name)
	}
	if r.ctx == nil || r.ctx.DB == nil {
		return fmt.Errorf("registry not initialized")
	}

	if _, err := r.ctx.DB.Exec(
		"UPDATE modules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?",
		active, name,
	); err != nil {
		return fmt.Errorf("updating module status: %w", err)
	}
	r.activeStatus[name] = active
	r.logger.Info("module status changed", "module", name, "active", active)
	return nil
}

// ShutdownAll shuts down all modules in reverse order.
func (r *Registry) ShutdownAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		r.logger.Info("shutting down module", "name", name)
		if err := r.modules[name].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutting down module %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RouteAll registers all module public routes behind an active check.
func (r *Registry) RouteAll(router chi.Router) {
	r.routeAll(router, false, func(m Module, sub chi.Router) { m.RegisterRoutes(sub) })
}

// AdminRouteAll registers all module admin routes behind an active check.
func (r *Registry) AdminRouteAll(router chi.Router) {
	r.routeAll(router, true, func(m Module, sub chi.Router) { m.RegisterAdminRoutes(sub) })
}

func (r *Registry) routeAll(router chi.Router, isAdmin bool, register func(Module, chi.Router)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		m := r.modules[name]
		router.Group(func(sub chi.Router) {
			sub.Use(r.moduleActiveMiddleware(name, isAdmin))
			register(m, sub)
		})
	}
}

// moduleActiveMiddleware answers 404 on public routes, or redirects to the
// admin home on admin routes, while the module is inactive.
func (r *Registry) moduleActiveMiddleware(moduleName string, isAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.IsActive(moduleName) {
				if isAdmin {
					http.Redirect(w, req, "/admin", http.StatusSeeOther)
					return
				}
				http.NotFound(w, req)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// AllTemplateFuncs returns the template functions of all active modules.
func (r *Registry) AllTemplateFuncs() template.FuncMap {
	funcs := make(template.FuncMap)
	for _, m := range r.List() {
		if r.IsActive(m.Name()) {
			maps.Copy(funcs, m.TemplateFuncs())
		}
	}
	return funcs
}

// Info describes a registered module.
type Info struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	Active            bool   `json:"active"`
	MigrationsApplied int    `json:"migrations_applied"`
	MigrationsPending int    `json:"migrations_pending"`
	AdminURL          string `json:"admin_url,omitempty"`
}

// ListInfo returns information about all registered modules.
func (r *Registry) ListInfo() []Info {
	r.mu.RLock()
	ctx := r.ctx
	r.mu.RUnlock()

	var infos []Info
	for _, m := range r.List() {
		migrations := m.Migrations()
		applied := 0
		if ctx != nil && ctx.DB != nil {
			for _, mig := range migrations {
				if ok, err := isMigrationApplied(ctx.DB, m.Name(), mig.Version); err == nil && ok {
					applied++
				}
			}
		}
		infos = append(infos, Info{
			Name:              m.Name(),
			Version:           m.Version(),
			Description:       m.Description(),
			Active:            r.IsActive(m.Name()),
			MigrationsApplied: applied,
			MigrationsPending: len(migrations) - applied,
			AdminURL:          m.AdminURL(),
		})
	}
	return infos
}
