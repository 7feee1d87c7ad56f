// Package newsapi serves an authenticated JSON feed of news content with
// per-item tags, images and view counts, plus a small admin page that sets
// the shared API key.
//
// The content itself is owned by a content-management database; newsapi
// only reads it through the ContentReader, FileReader and CountReader
// interfaces, implemented here by Store.
package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eringen/newsapi/logging"
)

// App is the central newsapi application. It wires together the store,
// settings, feed, handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Settings *Settings
	Feed     *Feed

	log           zerolog.Logger
	hasLogger     bool
	settingsStore SettingsStore
	closeSettings func() error
	loginLimiter  *LoginLimiter
	metrics       *metrics
	ready         bool
}

// New creates an App for cfg. Call Init (or Start) before serving.
func New(cfg Config, opts ...Option) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
	}
	for _, opt := range opts {
		opt(a)
	}
	if !a.hasLogger {
		a.log = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	}
	return a
}

// Init opens the store and settings backend and registers middleware and
// routes. It is idempotent.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("newsapi: %w", err)
	}

	store, err := NewStore(a.Config.Database, a.Config.Files.URLPath)
	if err != nil {
		return fmt.Errorf("newsapi: init store: %w", err)
	}
	a.Store = store

	if a.settingsStore == nil {
		switch a.Config.Settings.Backend {
		case "redis":
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			rs, err := NewRedisSettings(ctx, a.Config.Settings)
			cancel()
			if err != nil {
				store.Close()
				return fmt.Errorf("newsapi: init settings: %w", err)
			}
			a.settingsStore = rs
			a.closeSettings = rs.Close
		default:
			a.settingsStore = store
		}
	}
	a.Settings = NewSettings(a.settingsStore)
	a.Feed = NewFeed(store, store, store, a.Settings, a.Config.News)
	a.metrics = newMetrics()

	if a.Config.Admin.Enabled {
		a.loginLimiter = NewLoginLimiter(5, time.Minute)
	}

	a.setupMiddleware()
	a.setupRoutes()
	a.ready = true
	return nil
}

// Start initializes the app and serves until Shutdown is called.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
	a.log.Info().
		Str("addr", srv.Addr).
		Str("route", a.Config.News.Route).
		Str("database", a.Config.Database.Driver).
		Str("settings", a.Config.Settings.Backend).
		Msg("news api listening")
	if err := a.Echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close releases the store, settings backend and limiter.
func (a *App) Close() error {
	var errs []error
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.closeSettings != nil {
		errs = append(errs, a.closeSettings())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// Logger returns the app's logger.
func (a *App) Logger() zerolog.Logger {
	return a.log
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Every verb reaches the handler so non-GET requests get the 403 body.
	e.Any(a.Config.News.Route, a.handleNews)
	e.GET("/healthz", a.handleHealth)
	e.Static(a.Config.Files.URLPath, a.Config.Files.Dir)

	if a.Config.Metrics.Enabled {
		e.GET(a.Config.Metrics.Path, echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: a.metrics.registry,
		}))
	}

	if a.Config.Admin.Enabled {
		e.GET("/admin/", a.handleAdmin)
		e.POST("/admin/login/", a.handleAdminLogin)
		e.POST("/admin/logout/", handleAdminLogout)
		e.POST("/admin/settings/", a.handleAdminSettings)
	}
}
