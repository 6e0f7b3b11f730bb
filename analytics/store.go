package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownApplication is returned when a token/url pair matches no application.
	ErrUnknownApplication = errors.New("unknown application")
)

// Store provides database operations for analytics.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the necessary tables if they don't exist.
// Timestamps are stored as unix milliseconds (UTC).
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			token TEXT NOT NULL UNIQUE,
			logo TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			application_id INTEGER NOT NULL,
			activity_id TEXT NOT NULL,
			cookie_id TEXT NOT NULL,
			current_url TEXT NOT NULL,
			before_url TEXT NOT NULL DEFAULT '',
			referrer TEXT NOT NULL DEFAULT 'Direct',
			language TEXT NOT NULL DEFAULT '',
			os_id TEXT NOT NULL DEFAULT '',
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			request_cnt INTEGER NOT NULL DEFAULT 1,
			ts INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS button_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			application_id INTEGER NOT NULL,
			activity_id TEXT NOT NULL,
			cookie_id TEXT NOT NULL,
			name TEXT NOT NULL,
			current_url TEXT NOT NULL,
			request_cnt INTEGER NOT NULL DEFAULT 1,
			ts INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS anomalies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			application_id INTEGER NOT NULL,
			cookie_id TEXT NOT NULL,
			current_url TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			os_id TEXT NOT NULL DEFAULT '',
			request_cnt INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_app_ts ON events(application_id, ts);
		CREATE INDEX IF NOT EXISTS idx_events_cookie ON events(application_id, cookie_id, ts);
		CREATE INDEX IF NOT EXISTS idx_events_activity ON events(activity_id);
		CREATE INDEX IF NOT EXISTS idx_button_events_app_ts ON button_events(application_id, ts);
		CREATE INDEX IF NOT EXISTS idx_button_events_cookie ON button_events(application_id, cookie_id, ts);
		CREATE INDEX IF NOT EXISTS idx_anomalies_app_ts ON anomalies(application_id, ts);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// migrate applies incremental schema migrations based on a version stored in the settings table.
func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	return s.SetSetting("schema_version", strconv.Itoa(currentSchemaVersion))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Application is a site registered to send tracking events.
type Application struct {
	ID        int64
	Name      string
	URL       string
	Token     string
	Logo      string
	CreatedAt time.Time
}

func normalizeAppURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// CreateApplication registers a site and generates its collector token.
func (s *Store) CreateApplication(ctx context.Context, name, url string) (Application, error) {
	app := Application{
		Name:      strings.TrimSpace(name),
		URL:       normalizeAppURL(url),
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if app.Name == "" || app.URL == "" {
		return Application{}, fmt.Errorf("create application: name and url are required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (name, url, token, created_at) VALUES (?, ?, ?, ?)`,
		app.Name, app.URL, app.Token, app.CreatedAt.UnixMilli())
	if err != nil {
		return Application{}, fmt.Errorf("create application: %w", err)
	}
	app.ID, err = res.LastInsertId()
	if err != nil {
		return Application{}, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// VerifyApplication returns the application owning token if its url matches.
func (s *Store) VerifyApplication(ctx context.Context, token, url string) (Application, error) {
	app, err := s.scanApplication(s.db.QueryRowContext(ctx,
		`SELECT id, name, url, token, logo, created_at FROM applications WHERE token = ?`, token))
	if errors.Is(err, ErrNotFound) {
		return Application{}, ErrUnknownApplication
	}
	if err != nil {
		return Application{}, err
	}
	if app.URL != normalizeAppURL(url) {
		return Application{}, ErrUnknownApplication
	}
	return app, nil
}

// GetApplication returns an application by id.
func (s *Store) GetApplication(ctx context.Context, id int64) (Application, error) {
	return s.scanApplication(s.db.QueryRowContext(ctx,
		`SELECT id, name, url, token, logo, created_at FROM applications WHERE id = ?`, id))
}

func (s *Store) scanApplication(row *sql.Row) (Application, error) {
	var app Application
	var created int64
	err := row.Scan(&app.ID, &app.Name, &app.URL, &app.Token, &app.Logo, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	if err != nil {
		return Application{}, fmt.Errorf("scan application: %w", err)
	}
	app.CreatedAt = time.UnixMilli(created).UTC()
	return app, nil
}

// ListApplications returns all registered applications ordered by id.
func (s *Store) ListApplications(ctx context.Context) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, token, logo, created_at FROM applications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var app Application
		var created int64
		if err := rows.Scan(&app.ID, &app.Name, &app.URL, &app.Token, &app.Logo, &created); err != nil {
			return nil, fmt.Errorf("list applications: %w", err)
		}
		app.CreatedAt = time.UnixMilli(created).UTC()
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// ApplicationItems returns the applications as id/name items.
func (s *Store) ApplicationItems(ctx context.Context) ([]Item, error) {
	apps, err := s.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(apps))
	for i, a := range apps {
		items[i] = Item{ID: a.ID, Name: a.Name}
	}
	return items, nil
}

// SetApplicationLogo stores the public path of an application's logo.
func (s *Store) SetApplicationLogo(ctx context.Context, id int64, logo string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE applications SET logo = ? WHERE id = ?`, logo, id)
	if err != nil {
		return fmt.Errorf("set logo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PageEvent is one page view reported by a tracked site.
type PageEvent struct {
	ApplicationID  int64
	ActivityID     string
	CookieID       string
	CurrentURL     string
	BeforeURL      string
	Referrer       string
	Language       string
	OSID           string
	ResponseTimeMs int
	RequestCnt     int
	Timestamp      time.Time
}

// ButtonEvent is one button click reported by a tracked site.
type ButtonEvent struct {
	ApplicationID int64
	ActivityID    string
	CookieID      string
	Name          string
	CurrentURL    string
	RequestCnt    int
	Timestamp     time.Time
}

// LastActivity returns the latest event of cookieID in measurement m at or
// after since, or nil when there is none.
func (s *Store) LastActivity(ctx context.Context, m Measurement, appID int64, cookieID string, since time.Time) (*LastActivity, error) {
	table := "events"
	if m == MeasurementButton {
		table = "button_events"
	}
	var last LastActivity
	var ts int64
	err := s.db.QueryRowContext(ctx, `SELECT activity_id, request_cnt, ts FROM `+table+`
		WHERE application_id = ? AND cookie_id = ? AND ts >= ?
		ORDER BY ts DESC, id DESC LIMIT 1`, appID, cookieID, since.UnixMilli()).
		Scan(&last.ActivityID, &last.RequestCnt, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last %s activity: %w", m, err)
	}
	last.At = time.UnixMilli(ts).UTC()
	return &last, nil
}

// SavePageEvent stores a page view.
func (s *Store) SavePageEvent(ctx context.Context, e *PageEvent) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO events
		(application_id, activity_id, cookie_id, current_url, before_url, referrer,
		 language, os_id, response_time_ms, request_cnt, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ApplicationID, e.ActivityID, e.CookieID, e.CurrentURL, e.BeforeURL, e.Referrer,
		e.Language, e.OSID, e.ResponseTimeMs, e.RequestCnt, e.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("save page event: %w", err)
	}
	return nil
}

// SaveButtonEvent stores a button click.
func (s *Store) SaveButtonEvent(ctx context.Context, e *ButtonEvent) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO button_events
		(application_id, activity_id, cookie_id, name, current_url, request_cnt, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ApplicationID, e.ActivityID, e.CookieID, e.Name, e.CurrentURL, e.RequestCnt, e.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("save button event: %w", err)
	}
	return nil
}

// SaveAnomaly flags an abnormal event.
func (s *Store) SaveAnomaly(ctx context.Context, appID int64, cookieID, currentURL, language, osID string, requestCnt int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO anomalies
		(application_id, cookie_id, current_url, language, os_id, request_cnt, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appID, cookieID, currentURL, language, osID, requestCnt, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("save anomaly: %w", err)
	}
	return nil
}

// CountRecentCookies returns distinct cookies seen in the last five minutes.
func (s *Store) CountRecentCookies(ctx context.Context, appID int64) (int, error) {
	cutoff := time.Now().UTC().Add(-5 * time.Minute)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT cookie_id) FROM events WHERE application_id = ? AND ts >= ?`,
		appID, cutoff.UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent cookies: %w", err)
	}
	return n, nil
}

// CleanupOldEvents removes events, clicks and anomalies older than the retention period.
func (s *Store) CleanupOldEvents(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()
	for _, table := range []string{"events", "button_events", "anomalies"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE ts < ?`, cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, logf func(format string, args ...any)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldEvents(context.Background(), retentionDays); err != nil {
					logf("cleanup error: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
