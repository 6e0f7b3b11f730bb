package insite

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// SiteConfig holds all configuration for an insite dashboard.
type SiteConfig struct {
	Name string // Dashboard name (default "insite")
	URL  string // Canonical URL (default "http://localhost:3000")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/insite.db")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	RetentionDays        int           // Event retention (default 365)
	AbnormalRequestCount int           // Burst size recorded as an anomaly (default 10)
	PanelCacheTTL        time.Duration // Panel result cache TTL (default 30s)
	MenuPath             string        // Optional YAML file replacing the built-in menu
	LogLevel             string        // debug, info, warn or error (default "info")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "insite"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/insite.db"
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 365
	}
	if c.AbnormalRequestCount <= 0 {
		c.AbnormalRequestCount = 10
	}
	if c.PanelCacheTTL == 0 {
		c.PanelCacheTTL = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadConfig builds a SiteConfig from the environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
func LoadConfig() (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return SiteConfig{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := SiteConfig{
		Name:          os.Getenv("SITE_NAME"),
		URL:           os.Getenv("SITE_URL"),
		Addr:          os.Getenv("ADDR"),
		DatabasePath:  os.Getenv("DATABASE_PATH"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CookieSecure:  strings.EqualFold(os.Getenv("COOKIE_SECURE"), "true"),
		MenuPath:      os.Getenv("MENU_PATH"),
		LogLevel:      strings.ToLower(os.Getenv("LOG_LEVEL")),
	}

	var err error
	if cfg.RetentionDays, err = envInt("RETENTION_DAYS"); err != nil {
		return SiteConfig{}, err
	}
	if cfg.AbnormalRequestCount, err = envInt("ABNORMAL_REQUEST_COUNT"); err != nil {
		return SiteConfig{}, err
	}
	if v := os.Getenv("PANEL_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("PANEL_CACHE_TTL: %w", err)
		}
		cfg.PanelCacheTTL = d
	}
	if _, ok := logLevels[cfg.LogLevel]; cfg.LogLevel != "" && !ok {
		return SiteConfig{}, fmt.Errorf("LOG_LEVEL: unknown level %q", cfg.LogLevel)
	}

	cfg.setDefaults()
	return cfg, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

var logLevels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"error": log.ERROR,
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for uploaded logos and other user-owned
// static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces Echo's logger.
func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		a.Echo.Logger = l
	}
}
