// Package templates contains the panel components of the dashboard and the
// view models they render. The view models mirror the analytics records to
// avoid import cycles.
package templates

// PanelKind identifies which aggregate a statistics panel displays.
type PanelKind string

const (
	PanelReferrers    PanelKind = "referrers"
	PanelExitRate     PanelKind = "exit-rate"
	PanelBounces      PanelKind = "bounces"
	PanelEntryPages   PanelKind = "entry-pages"
	PanelExitPages    PanelKind = "exit-pages"
	PanelPageFlow     PanelKind = "page-flow"
	PanelUserCounts   PanelKind = "user-counts"
	PanelButtonCounts PanelKind = "button-counts"
	PanelButtonDaily  PanelKind = "button-daily"
	PanelAnomalies    PanelKind = "anomalies"
)

var panelKinds = []PanelKind{
	PanelReferrers, PanelExitRate, PanelBounces, PanelEntryPages, PanelExitPages,
	PanelPageFlow, PanelUserCounts, PanelButtonCounts, PanelButtonDaily, PanelAnomalies,
}

// ParsePanelKind returns the kind named s.
func ParsePanelKind(s string) (PanelKind, bool) {
	for _, k := range panelKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// PanelViewModel is the data of one statistics panel.
type PanelViewModel struct {
	Kind    PanelKind
	Columns []string
	Rows    []RowViewModel
	Bars    []BarViewModel
	// SeriesJSON holds chart series points for client-side charting, if any.
	SeriesJSON string
}

// RowViewModel is one table row, already formatted.
type RowViewModel struct {
	Cells []string
}

// BarViewModel is one bar of the fallback bar chart.
type BarViewModel struct {
	Label   string
	Value   string
	Percent float64 // width relative to the largest bar, 0-100
}
