package analytics

import (
	"fmt"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	defaultRangeDays = 7
	maxRangeDays     = 366
)

// Period is a resolved, half-open [From, To) UTC window.
type Period struct {
	From time.Time
	To   time.Time
}

// Days returns the number of whole days covered.
func (p Period) Days() int {
	return int(p.To.Sub(p.From).Hours() / 24)
}

// Previous returns the window of equal length immediately before p.
func (p Period) Previous() Period {
	d := p.To.Sub(p.From)
	return Period{From: p.From.Add(-d), To: p.From}
}

// Range renders p as the DateRange record sent to the dashboard.
func (p Period) Range() DateRange {
	prev := p.Previous()
	return DateRange{
		Start:  p.From.Format(dateLayout),
		End:    p.To.AddDate(0, 0, -1).Format(dateLayout),
		Past:   label(prev),
		Latest: label(p),
	}
}

func label(p Period) string {
	return p.From.Format("Jan 2") + " - " + p.To.AddDate(0, 0, -1).Format("Jan 2, 2006")
}

// ParsePeriod resolves inclusive start/end dates (YYYY-MM-DD) into a Period.
// Empty values default to the last seven days ending today; reversed bounds
// are swapped.
func ParsePeriod(start, end string, now time.Time) (Period, error) {
	today := TruncateDay(now.UTC())

	to := today
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return Period{}, fmt.Errorf("parse end date %q: %w", end, err)
		}
		to = t
	}

	from := to.AddDate(0, 0, -(defaultRangeDays - 1))
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return Period{}, fmt.Errorf("parse start date %q: %w", start, err)
		}
		from = t
	}

	if from.After(to) {
		from, to = to, from
	}
	// to is inclusive, so the window spans to-from plus one day.
	if to.Sub(from) >= maxRangeDays*24*time.Hour {
		from = to.AddDate(0, 0, -(maxRangeDays - 1))
	}

	return Period{From: from, To: to.AddDate(0, 0, 1)}, nil
}

// TruncateDay returns midnight of t's day in t's location.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
