package analytics

// Item is a generic id/name reference, used for application pickers.
type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DateRange describes the selected reporting window.
// Past and Latest are display labels for the preceding period and the selected one.
type DateRange struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Past   string `json:"past"`
	Latest string `json:"latest"`
}

// UserCountRecord is one row of the per-page usage table.
type UserCountRecord struct {
	ID           int64   `json:"id"`
	Count        int     `json:"count"`
	Percentage   float64 `json:"percentage"`
	CurrentPage  string  `json:"currentPage"`
	ResponseTime string  `json:"responseTime"`
}

// LabelStyle is the optional font styling of a chart data label.
type LabelStyle struct {
	FontSize string `json:"fontSize"`
}

// DataLabels configures how a chart point renders its label.
// Style and TextOutline are absent unless explicitly set.
type DataLabels struct {
	Enabled     bool        `json:"enabled"`
	Format      string      `json:"format"`
	Style       *LabelStyle `json:"style,omitempty"`
	TextOutline *string     `json:"textOutline,omitempty"`
}

// ChartSeriesPoint is one point of a chart series in the shape charting
// libraries expect (name, y, dataLabels).
type ChartSeriesPoint struct {
	Name       string     `json:"name"`
	Y          float64    `json:"y"`
	DataLabels DataLabels `json:"dataLabels"`
}

// ReferrerRecord is one row of the referrer ranking.
type ReferrerRecord struct {
	ID         int64   `json:"id"`
	Referrer   string  `json:"referrer"`
	Rank       int     `json:"rank"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ButtonRecord is the click total of one button on one day.
type ButtonRecord struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Counts int    `json:"counts"`
	Date   string `json:"date"`
}

// ButtonCountRecord is the click total of one button over the range.
type ButtonCountRecord struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	CountPerUser float64 `json:"countPerUser"`
}

// AnomalyRecord is one session event flagged as abnormal.
type AnomalyRecord struct {
	ID         int64  `json:"id"`
	CookieID   string `json:"cookieId"`
	Time       string `json:"time"`
	CurrentURL string `json:"currentUrl"`
	Language   string `json:"language"`
	OSID       string `json:"osId"`
}

// PageRecord ranks pages by count (entry pages, exit pages, bounces).
type PageRecord struct {
	ID         int64   `json:"id"`
	Page       string  `json:"page"`
	Rank       int     `json:"rank"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ExitRateRecord reports how often a page ends an activity.
type ExitRateRecord struct {
	ID    int64   `json:"id"`
	Page  string  `json:"page"`
	Views int     `json:"views"`
	Exits int     `json:"exits"`
	Rate  float64 `json:"rate"`
}

// FlowRecord counts navigations from one page to another.
type FlowRecord struct {
	ID    int64  `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Overview bundles the aggregates shown on the tracking page.
type Overview struct {
	Range     DateRange        `json:"range"`
	Referrers []ReferrerRecord `json:"referrers"`
	ExitRates []ExitRateRecord `json:"exitRates"`
	Bounces   []PageRecord     `json:"bounces"`
	Entries   []PageRecord     `json:"entries"`
	Exits     []PageRecord     `json:"exits"`
	Flow      []FlowRecord     `json:"flow"`
}
