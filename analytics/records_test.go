package analytics_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/eringen/insite/analytics"
	"github.com/eringen/insite/views"
)

func TestRecordShapes(t *testing.T) {
	tests := []struct {
		name     string
		newValue func() any
		full     string
	}{
		{"Item", func() any { return &analytics.Item{} }, `{"id":1,"name":"Shop"}`},
		{"DateRange", func() any { return &analytics.DateRange{} },
			`{"start":"2026-10-01","end":"2026-10-07","past":"Sep 24 - Sep 30, 2026","latest":"Oct 1 - Oct 7, 2026"}`},
		{"UserCountRecord", func() any { return &analytics.UserCountRecord{} },
			`{"id":1,"count":3,"percentage":60,"currentPage":"/","responseTime":"120ms"}`},
		{"ChartSeriesPoint", func() any { return &analytics.ChartSeriesPoint{} },
			`{"name":"Google","y":50,"dataLabels":{"enabled":true,"format":"{point.name}","style":{"fontSize":"12px"},"textOutline":"none"}}`},
		{"ReferrerRecord", func() any { return &analytics.ReferrerRecord{} },
			`{"id":1,"referrer":"Google","rank":1,"count":2,"percentage":50}`},
		{"ButtonRecord", func() any { return &analytics.ButtonRecord{} },
			`{"id":1,"name":"buy","counts":3,"date":"2026-10-02"}`},
		{"ButtonCountRecord", func() any { return &analytics.ButtonCountRecord{} },
			`{"id":1,"name":"buy","count":3,"countPerUser":1.5}`},
		{"AnomalyRecord", func() any { return &analytics.AnomalyRecord{} },
			`{"id":1,"cookieId":"c1","time":"2026-10-02T10:00:00Z","currentUrl":"/","language":"en","osId":"Linux"}`},
		{"SidebarMenuItem", func() any { return &views.SidebarMenuItem{} },
			`{"id":1,"image":"tracking","menu":"Tracking","route":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := analytics.DecodeStrict(strings.NewReader(tt.full), tt.newValue()); err != nil {
				t.Fatalf("complete value rejected: %v", err)
			}

			var fields map[string]json.RawMessage
			if err := json.Unmarshal([]byte(tt.full), &fields); err != nil {
				t.Fatal(err)
			}
			for key := range fields {
				partial := make(map[string]json.RawMessage, len(fields)-1)
				for k, v := range fields {
					if k != key {
						partial[k] = v
					}
				}
				body, _ := json.Marshal(partial)
				err := analytics.DecodeStrict(strings.NewReader(string(body)), tt.newValue())
				if !errors.Is(err, analytics.ErrMissingField) {
					t.Errorf("without %q: expected ErrMissingField, got %v", key, err)
				}
			}
		})
	}
}

func TestChartSeriesPointLabels(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"optional label styling absent",
			`{"name":"Direct","y":25,"dataLabels":{"enabled":true,"format":"{point.y}"}}`, nil},
		{"label format absent",
			`{"name":"Direct","y":25,"dataLabels":{"enabled":true,"style":{"fontSize":"12px"}}}`, analytics.ErrMissingField},
		{"label style without font size",
			`{"name":"Direct","y":25,"dataLabels":{"enabled":true,"format":"x","style":{}}}`, analytics.ErrMissingField},
		{"labels null",
			`{"name":"Direct","y":25,"dataLabels":null}`, analytics.ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p analytics.ChartSeriesPoint
			err := analytics.DecodeStrict(strings.NewReader(tt.body), &p)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.DataLabels.Style != nil || p.DataLabels.TextOutline != nil {
					t.Errorf("absent styling decoded as %+v", p.DataLabels)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
