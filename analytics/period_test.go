package analytics

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParsePeriodDefault(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)
	p, err := ParsePeriod("", "", now)
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if !p.From.Equal(day("2026-10-13")) || !p.To.Equal(day("2026-10-20")) {
		t.Fatalf("period = %v - %v", p.From, p.To)
	}
	if p.Days() != 7 {
		t.Errorf("Days() = %d, want 7", p.Days())
	}
}

func TestParsePeriodExplicit(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		start, end string
	}{
		{"ordered", "2026-10-01", "2026-10-07"},
		{"reversed", "2026-10-07", "2026-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.start, tt.end, now)
			if err != nil {
				t.Fatalf("ParsePeriod: %v", err)
			}
			r := p.Range()
			if r.Start != "2026-10-01" || r.End != "2026-10-07" {
				t.Errorf("range = %s..%s", r.Start, r.End)
			}
			if r.Latest != "Oct 1 - Oct 7, 2026" {
				t.Errorf("Latest = %q", r.Latest)
			}
			if r.Past != "Sep 24 - Sep 30, 2026" {
				t.Errorf("Past = %q", r.Past)
			}
		})
	}
}

func TestParsePeriodSingleDay(t *testing.T) {
	p, err := ParsePeriod("2026-03-05", "2026-03-05", time.Now())
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if p.Days() != 1 {
		t.Errorf("Days() = %d, want 1", p.Days())
	}
	if prev := p.Previous(); !prev.From.Equal(day("2026-03-04")) || !prev.To.Equal(day("2026-03-05")) {
		t.Errorf("Previous() = %v - %v", prev.From, prev.To)
	}
}

func TestParsePeriodCapped(t *testing.T) {
	p, err := ParsePeriod("2020-01-01", "2026-01-01", time.Now())
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if p.Days() != maxRangeDays {
		t.Errorf("Days() = %d, want %d", p.Days(), maxRangeDays)
	}
	if !p.From.Equal(day("2025-01-01")) || !p.To.Equal(day("2026-01-02")) {
		t.Errorf("period = %v - %v", p.From, p.To)
	}

	// A window of exactly maxRangeDays is left alone.
	p, err = ParsePeriod("2025-01-01", "2026-01-01", time.Now())
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if p.Days() != maxRangeDays || !p.From.Equal(day("2025-01-01")) {
		t.Errorf("full-year window changed: %v - %v", p.From, p.To)
	}
}

func TestParsePeriodInvalid(t *testing.T) {
	for _, tt := range [][2]string{{"2026/10/01", ""}, {"", "yesterday"}} {
		if _, err := ParsePeriod(tt[0], tt[1], time.Now()); err == nil {
			t.Errorf("ParsePeriod(%q, %q) should fail", tt[0], tt[1])
		}
	}
}
