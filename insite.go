// Package insite is a self-hosted website traffic dashboard built with Go,
// Echo, and templ. Tracked sites post page views and button clicks to the
// collector endpoints; the dashboard pages show inflow sources, exit rates,
// bounces, entry and exit pages, page flow, and per-user interaction panels.
package insite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/insite/analytics"
)

// App is the central insite application. It wires together the analytics
// store, realtime hub, handlers, middleware, and page routes.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Analytics *analytics.Store
	Hub       *analytics.Hub

	menu             Menu
	loginLimiter     *analytics.RateLimiter
	analyticsHandler *analytics.Handler
	customRoutes     []func(*App)
	staticDir        string
	stopHub          context.CancelFunc
	stopCleanup      func()
}

// New creates a new insite App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the database, starts background work, and registers
// middleware and routes. Start calls it; tests call it directly.
func (a *App) Init() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("insite: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("insite: SessionSecret is required")
	}
	if lvl, ok := logLevels[a.Config.LogLevel]; ok {
		a.Echo.Logger.SetLevel(lvl)
	}

	menu, err := LoadMenu(a.Config.MenuPath)
	if err != nil {
		return fmt.Errorf("insite: %w", err)
	}
	a.menu = menu

	store, err := analytics.NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("insite: init store: %w", err)
	}
	a.Analytics = store

	a.loginLimiter = analytics.NewRateLimiter(5, time.Minute)

	a.Hub = analytics.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	a.stopHub = cancel
	go a.Hub.Run(ctx)

	a.stopCleanup = store.StartCleanupScheduler(a.Config.RetentionDays, 24*time.Hour, a.Echo.Logger.Errorf)

	a.analyticsHandler = analytics.NewHandler(store, a.Hub, analytics.HandlerConfig{
		AbnormalRequestCount: a.Config.AbnormalRequestCount,
		PanelCacheTTL:        a.Config.PanelCacheTTL,
	})
	a.Echo.Validator = analytics.NewRequestValidator()

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Echo.Logger.Infof("insite listening on %s", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Static assets: user dir first, embedded fallback.
	e.GET("/public/*", a.handleAsset)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", handleRobots)

	// Dashboard pages
	for _, r := range Routes() {
		e.GET(r.echoPath(), a.pageHandler(r), requireAdmin)
	}

	// Admin routes
	e.GET("/admin/login/", a.handleLoginPage)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/applications/:id/logo/", a.handleLogoUpload, requireAdmin)

	// Analytics routes
	publicGroup := e.Group("")
	a.analyticsHandler.RegisterRoutes(e, publicGroup, requireAdmin)
	e.GET("/api/stats/menu", a.handleMenu, requireAdmin)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.stopHub != nil {
		a.stopHub()
	}
	if a.analyticsHandler != nil {
		a.analyticsHandler.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Analytics != nil {
		return a.Analytics.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("insite: required environment variable %s is not set", key)
	}
	return v
}
