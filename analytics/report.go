package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Query selects the application and window an aggregate is computed over.
type Query struct {
	AppID  int64
	Period Period
	Limit  int
}

func (q Query) bounds() (int64, int64, int64) {
	return q.AppID, q.Period.From.UnixMilli(), q.Period.To.UnixMilli()
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 10
	}
	return q.Limit
}

type nameCount struct {
	name  string
	count int
}

func (s *Store) queryNameCounts(ctx context.Context, what, query string, args ...any) ([]nameCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	out := []nameCount{}
	for rows.Next() {
		var nc nameCount
		if err := rows.Scan(&nc.name, &nc.count); err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		out = append(out, nc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return out, nil
}

func (s *Store) countActivities(ctx context.Context, q Query) (int, error) {
	app, from, to := q.bounds()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT activity_id) FROM events
		WHERE application_id = ? AND ts >= ? AND ts < ?`, app, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

// toPageRecords ranks sorted counts against total.
func toPageRecords(counts []nameCount, total int) []PageRecord {
	values := make([]int, len(counts))
	for i, c := range counts {
		values[i] = c.count
	}
	ranks := competitionRanks(values)
	out := make([]PageRecord, len(counts))
	for i, c := range counts {
		out[i] = PageRecord{
			ID:         int64(i + 1),
			Page:       c.name,
			Rank:       ranks[i],
			Count:      c.count,
			Percentage: percent(c.count, total),
		}
	}
	return out
}

// ReferrerRanking ranks the referrers that started each activity.
func (s *Store) ReferrerRanking(ctx context.Context, q Query) ([]ReferrerRecord, error) {
	app, from, to := q.bounds()
	counts, err := s.queryNameCounts(ctx, "referrer ranking", `
		SELECT e.referrer, COUNT(*) AS c FROM events e
		JOIN (SELECT MIN(id) AS first_id FROM events
		      WHERE application_id = ? AND ts >= ? AND ts < ?
		      GROUP BY activity_id) f ON e.id = f.first_id
		GROUP BY e.referrer ORDER BY c DESC, e.referrer`, app, from, to)
	if err != nil {
		return nil, err
	}

	total := 0
	values := make([]int, len(counts))
	for i, c := range counts {
		total += c.count
		values[i] = c.count
	}
	ranks := competitionRanks(values)

	out := make([]ReferrerRecord, 0, q.limit())
	for i, c := range counts {
		if i >= q.limit() {
			break
		}
		out = append(out, ReferrerRecord{
			ID:         int64(i + 1),
			Referrer:   c.name,
			Rank:       ranks[i],
			Count:      c.count,
			Percentage: percent(c.count, total),
		})
	}
	return out, nil
}

// UserCounts reports distinct visitors and mean response time per page.
func (s *Store) UserCounts(ctx context.Context, q Query) ([]UserCountRecord, error) {
	app, from, to := q.bounds()

	var totalUsers int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT cookie_id) FROM events
		WHERE application_id = ? AND ts >= ? AND ts < ?`, app, from, to).Scan(&totalUsers); err != nil {
		return nil, fmt.Errorf("user counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT current_url, COUNT(DISTINCT cookie_id) AS users, AVG(response_time_ms)
		FROM events WHERE application_id = ? AND ts >= ? AND ts < ?
		GROUP BY current_url ORDER BY users DESC, current_url LIMIT ?`, app, from, to, q.limit())
	if err != nil {
		return nil, fmt.Errorf("user counts: %w", err)
	}
	defer rows.Close()

	out := []UserCountRecord{}
	for rows.Next() {
		var page string
		var users int
		var avg sql.NullFloat64
		if err := rows.Scan(&page, &users, &avg); err != nil {
			return nil, fmt.Errorf("user counts: %w", err)
		}
		out = append(out, UserCountRecord{
			ID:           int64(len(out) + 1),
			Count:        users,
			Percentage:   percent(users, totalUsers),
			CurrentPage:  page,
			ResponseTime: fmt.Sprintf("%dms", int(math.Round(avg.Float64))),
		})
	}
	return out, rows.Err()
}

// EntryPages ranks the first page of each activity.
func (s *Store) EntryPages(ctx context.Context, q Query) ([]PageRecord, error) {
	return s.edgePages(ctx, q, "MIN", "entry pages")
}

// ExitPages ranks the last page of each activity.
func (s *Store) ExitPages(ctx context.Context, q Query) ([]PageRecord, error) {
	return s.edgePages(ctx, q, "MAX", "exit pages")
}

func (s *Store) edgePages(ctx context.Context, q Query, agg, what string) ([]PageRecord, error) {
	app, from, to := q.bounds()
	counts, err := s.queryNameCounts(ctx, what, `
		SELECT e.current_url, COUNT(*) AS c FROM events e
		JOIN (SELECT `+agg+`(id) AS edge_id FROM events
		      WHERE application_id = ? AND ts >= ? AND ts < ?
		      GROUP BY activity_id) f ON e.id = f.edge_id
		GROUP BY e.current_url ORDER BY c DESC, e.current_url LIMIT ?`, app, from, to, q.limit())
	if err != nil {
		return nil, err
	}
	total, err := s.countActivities(ctx, q)
	if err != nil {
		return nil, err
	}
	return toPageRecords(counts, total), nil
}

// Bounces ranks pages of single-page activities.
func (s *Store) Bounces(ctx context.Context, q Query) ([]PageRecord, error) {
	app, from, to := q.bounds()
	counts, err := s.queryNameCounts(ctx, "bounces", `
		SELECT page, COUNT(*) AS c FROM (
			SELECT MIN(current_url) AS page, COUNT(*) AS views FROM events
			WHERE application_id = ? AND ts >= ? AND ts < ?
			GROUP BY activity_id HAVING views = 1
		) GROUP BY page ORDER BY c DESC, page LIMIT ?`, app, from, to, q.limit())
	if err != nil {
		return nil, err
	}
	total, err := s.countActivities(ctx, q)
	if err != nil {
		return nil, err
	}
	return toPageRecords(counts, total), nil
}

// ExitRates reports, per page, the share of views that ended an activity.
func (s *Store) ExitRates(ctx context.Context, q Query) ([]ExitRateRecord, error) {
	app, from, to := q.bounds()
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.current_url, v.views, COALESCE(x.exits, 0) AS exits FROM
			(SELECT current_url, COUNT(*) AS views FROM events
			 WHERE application_id = ? AND ts >= ? AND ts < ?
			 GROUP BY current_url) v
		LEFT JOIN
			(SELECT e.current_url, COUNT(*) AS exits FROM events e
			 JOIN (SELECT MAX(id) AS last_id FROM events
			       WHERE application_id = ? AND ts >= ? AND ts < ?
			       GROUP BY activity_id) l ON e.id = l.last_id
			 GROUP BY e.current_url) x
		ON v.current_url = x.current_url
		ORDER BY v.views DESC, v.current_url LIMIT ?`, app, from, to, app, from, to, q.limit())
	if err != nil {
		return nil, fmt.Errorf("exit rates: %w", err)
	}
	defer rows.Close()

	out := []ExitRateRecord{}
	for rows.Next() {
		var r ExitRateRecord
		if err := rows.Scan(&r.Page, &r.Views, &r.Exits); err != nil {
			return nil, fmt.Errorf("exit rates: %w", err)
		}
		r.ID = int64(len(out) + 1)
		r.Rate = percent(r.Exits, r.Views)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PageFlow counts in-site navigations between pages.
func (s *Store) PageFlow(ctx context.Context, q Query) ([]FlowRecord, error) {
	app, from, to := q.bounds()
	rows, err := s.db.QueryContext(ctx, `
		SELECT before_url, current_url, COUNT(*) AS c FROM events
		WHERE application_id = ? AND ts >= ? AND ts < ? AND before_url != ''
		GROUP BY before_url, current_url ORDER BY c DESC, before_url, current_url LIMIT ?`,
		app, from, to, q.limit())
	if err != nil {
		return nil, fmt.Errorf("page flow: %w", err)
	}
	defer rows.Close()

	out := []FlowRecord{}
	for rows.Next() {
		var r FlowRecord
		if err := rows.Scan(&r.From, &r.To, &r.Count); err != nil {
			return nil, fmt.Errorf("page flow: %w", err)
		}
		r.ID = int64(len(out) + 1)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ButtonCounts reports clicks per button and clicks per distinct visitor.
func (s *Store) ButtonCounts(ctx context.Context, q Query) ([]ButtonCountRecord, error) {
	app, from, to := q.bounds()
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COUNT(*) AS c, COUNT(DISTINCT cookie_id) FROM button_events
		WHERE application_id = ? AND ts >= ? AND ts < ?
		GROUP BY name ORDER BY c DESC, name LIMIT ?`, app, from, to, q.limit())
	if err != nil {
		return nil, fmt.Errorf("button counts: %w", err)
	}
	defer rows.Close()

	out := []ButtonCountRecord{}
	for rows.Next() {
		var r ButtonCountRecord
		var users int
		if err := rows.Scan(&r.Name, &r.Count, &users); err != nil {
			return nil, fmt.Errorf("button counts: %w", err)
		}
		r.ID = int64(len(out) + 1)
		if users > 0 {
			r.CountPerUser = math.Round(float64(r.Count)*100/float64(users)) / 100
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ButtonDaily reports clicks per button per UTC day, oldest first.
func (s *Store) ButtonDaily(ctx context.Context, q Query) ([]ButtonRecord, error) {
	app, from, to := q.bounds()
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, strftime('%Y-%m-%d', ts / 1000, 'unixepoch') AS day, COUNT(*)
		FROM button_events WHERE application_id = ? AND ts >= ? AND ts < ?
		GROUP BY name, day ORDER BY day, name`, app, from, to)
	if err != nil {
		return nil, fmt.Errorf("button daily: %w", err)
	}
	defer rows.Close()

	out := []ButtonRecord{}
	for rows.Next() {
		var r ButtonRecord
		if err := rows.Scan(&r.Name, &r.Date, &r.Counts); err != nil {
			return nil, fmt.Errorf("button daily: %w", err)
		}
		r.ID = int64(len(out) + 1)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Anomalies lists flagged events, newest first.
func (s *Store) Anomalies(ctx context.Context, q Query) ([]AnomalyRecord, error) {
	app, from, to := q.bounds()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cookie_id, ts, current_url, language, os_id FROM anomalies
		WHERE application_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts DESC, id DESC LIMIT ?`, app, from, to, q.limit())
	if err != nil {
		return nil, fmt.Errorf("anomalies: %w", err)
	}
	defer rows.Close()

	out := []AnomalyRecord{}
	for rows.Next() {
		var r AnomalyRecord
		var ts int64
		if err := rows.Scan(&r.ID, &r.CookieID, &ts, &r.CurrentURL, &r.Language, &r.OSID); err != nil {
			return nil, fmt.Errorf("anomalies: %w", err)
		}
		r.Time = time.UnixMilli(ts).UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Overview computes the tracking page aggregates concurrently.
func (s *Store) Overview(ctx context.Context, q Query) (*Overview, error) {
	ov := &Overview{Range: q.Period.Range()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ov.Referrers, err = s.ReferrerRanking(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		ov.ExitRates, err = s.ExitRates(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		ov.Bounces, err = s.Bounces(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		ov.Entries, err = s.EntryPages(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		ov.Exits, err = s.ExitPages(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		ov.Flow, err = s.PageFlow(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}
