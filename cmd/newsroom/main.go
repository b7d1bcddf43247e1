// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/newsroom/internal/analytics"
	"github.com/olegiv/newsroom/internal/assets"
	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/config"
	"github.com/olegiv/newsroom/internal/geoip"
	"github.com/olegiv/newsroom/internal/handler"
	"github.com/olegiv/newsroom/internal/handler/api"
	"github.com/olegiv/newsroom/internal/logging"
	"github.com/olegiv/newsroom/internal/middleware"
	"github.com/olegiv/newsroom/internal/module"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/render"
	"github.com/olegiv/newsroom/internal/scheduler"
	"github.com/olegiv/newsroom/internal/seo"
	"github.com/olegiv/newsroom/internal/service"
	"github.com/olegiv/newsroom/internal/session"
	"github.com/olegiv/newsroom/internal/shortcode"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/version"
	"github.com/olegiv/newsroom/modules/news"
	"github.com/olegiv/newsroom/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	hashPassword := flag.String("hash-password", "", "Print an Argon2id hash of the given admin password and exit")
	createAPIKey := flag.String("create-api-key", "", "Create an API key with all permissions under the given name, print it and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Newsroom - news publishing server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_DB_PATH               SQLite database path (default: ./data/newsroom.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_SITE_URL              Public site URL used in feeds and sitemaps\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_ADMIN_PASSWORD_HASH   Argon2id hash enabling the admin panel\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_REDIS_URL             Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_HOME_TEMPLATES        Front page templates (default: featured,breaking,remainder)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_GEOIP_DB_PATH         GeoLite2-Country database for view countries (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("newsroom %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if *hashPassword != "" {
		if err := printPasswordHash(os.Stdout, *hashPassword); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *createAPIKey != "" {
		if err := runCreateAPIKey(*createAPIKey); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// openDatabase creates the data directory, opens the database and migrates it.
func openDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}
	if err := store.SeedDemo(ctx, db, cfg.SeedDemo); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}

	// Cache: Redis when configured and reachable, memory otherwise
	backend, backendName := cache.NewCache(cache.Config{
		RedisURL:        cfg.RedisURL,
		Namespace:       cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() { _ = backend.Close() }()
	cacheStore := cache.NewStore(backend, cfg.CachePrefix, logger)
	slog.Info("cache initialized", "backend", backendName)

	hookRegistry := module.NewHookRegistry(logger)
	articles := service.NewArticleService(db, cacheStore, cfg.CacheTTLDuration(), hookRegistry, logger)
	sections := service.NewSectionService(db, cacheStore, cfg.CacheTTLDuration(), hookRegistry, logger)
	events := service.NewEventService(db, logger)

	homeTemplates, err := multiquery.ParseTemplates(cfg.HomeTemplates)
	if err != nil {
		return fmt.Errorf("parsing home templates: %w", err)
	}
	distributor := multiquery.NewDistributor(articles.Fetch, blocks.RenderArticles, logger)

	blockRegistry := blocks.NewRegistry(logger)
	if err := blocks.RegisterNews(blockRegistry, blocks.NewsDeps{Articles: articles, Distributor: distributor}); err != nil {
		return fmt.Errorf("registering blocks: %w", err)
	}
	shortcodes := shortcode.NewRegistry(logger)
	if err := shortcode.RegisterNews(shortcodes, articles, sections); err != nil {
		return fmt.Errorf("registering shortcodes: %w", err)
	}
	assetManager := assets.NewManager(web.Static(), "/static", logger)
	if err := assets.RegisterNews(assetManager); err != nil {
		return fmt.Errorf("registering assets: %w", err)
	}

	var recorder *analytics.Recorder
	if cfg.AnalyticsEnabled {
		if err := analytics.Install(ctx, db); err != nil {
			return fmt.Errorf("installing analytics: %w", err)
		}
		recorder = analytics.NewRecorder(db, logger)

		countries, err := geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			slog.Warn("geoip disabled", "error", err)
		}
		defer func() { _ = countries.Close() }()
		recorder.SetCountryLookup(countries)
	}

	sessionManager := session.New(db, cfg.IsDevelopment())

	// Modules are registered before the renderer so their template
	// functions are available when templates are parsed.
	moduleRegistry := module.NewRegistry(logger)
	if err := moduleRegistry.Register(news.New()); err != nil {
		return fmt.Errorf("registering news module: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS: web.TemplatesFS(),
		Sessions:    sessionManager,
		Assets:      assetManager,
		SiteName:    cfg.SiteName,
		Funcs:       moduleRegistry.AllTemplateFuncs(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	sched := scheduler.New(logger)

	moduleCtx := &module.Context{
		DB:         db,
		Store:      store.New(db),
		Logger:     logger,
		Config:     cfg,
		Render:     renderer,
		Sessions:   sessionManager,
		Hooks:      hookRegistry,
		Cache:      cacheStore,
		Articles:   articles,
		Sections:   sections,
		Events:     events,
		Blocks:     blockRegistry,
		Shortcodes: shortcodes,
		Assets:     assetManager,
		Analytics:  recorder,
		Scheduler:  sched,
	}
	if err := moduleRegistry.InitAll(moduleCtx); err != nil {
		return fmt.Errorf("initializing modules: %w", err)
	}
	defer func() {
		if err := moduleRegistry.ShutdownAll(); err != nil {
			slog.Error("error shutting down modules", "error", err)
		}
	}()

	sched.Start()
	defer sched.Stop()

	site := &seo.SiteConfig{SiteName: cfg.SiteName, SiteURL: cfg.SiteURL, Logo: "/static/img/logo.svg"}
	frontendHandler := handler.NewFrontendHandler(handler.FrontendConfig{
		Articles:      articles,
		Sections:      sections,
		Distributor:   distributor,
		Blocks:        blockRegistry,
		Shortcodes:    shortcodes,
		Hooks:         hookRegistry,
		Analytics:     recorder,
		Renderer:      renderer,
		Site:          site,
		HomeTemplates: homeTemplates,
		HomePerPage:   cfg.HomePerPage,
		Logger:        logger,
	})
	healthHandler := handler.NewHealthHandler(db, backend, versionInfo.Version)
	apiHandler := api.NewHandler(api.Config{
		DB:        db,
		Articles:  articles,
		Sections:  sections,
		Blocks:    blockRegistry,
		Logger:    logger,
		RateLimit: cfg.APIRateLimit,
		RateBurst: cfg.APIRateBurst,
	})

	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return fmt.Errorf("generating csrf key: %w", err)
	}
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(chimw.RedirectSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.SkipCSRF("/api/"))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(csrfKey, cfg.SiteURL, cfg.IsDevelopment())))
	r.Use(sessionManager.LoadAndSave)

	// Static assets: cache for 1 year, URLs carry ?ver=
	staticHandler := middleware.StaticCache(31536000)(http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	r.Handle("/static/*", staticHandler)

	r.With(middleware.OptionalAPIKeyAuth(db)).Get("/health", healthHandler.Health)
	r.Mount("/api/v1", apiHandler.Routes())
	slog.Info("REST API v1 mounted at /api/v1")

	if cfg.AdminEnabled() {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(middleware.AdminAuthConfig{
				User:         cfg.AdminUser,
				PasswordHash: cfg.AdminPasswordHash,
				Protection:   loginProtection,
			}))
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, "/admin/news", http.StatusSeeOther)
			})
			moduleRegistry.AdminRouteAll(r)
		})
	} else {
		slog.Warn("admin panel disabled: NEWSROOM_ADMIN_PASSWORD_HASH is not set")
	}

	moduleRegistry.RouteAll(r)
	frontendHandler.Routes(r)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
