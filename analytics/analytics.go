// Package analytics collects tracking events from registered sites and
// aggregates them into the records shown on the insite dashboard.
package analytics

import (
	"math"
	"regexp"
	"strings"
)

// ParseOS extracts the operating system name from a User-Agent string.
func ParseOS(ua string) string {
	ua = strings.ToLower(ua)

	// Android before Linux since Android UA contains "linux"
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "Other"
	}
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"yandex", "baidu", "facebookexternalhit", "headlesschrome",
}

// IsBot checks if the User-Agent is likely a bot, crawler or headless browser.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// referrerDomainRegex is pre-compiled for use in CleanReferrer.
var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/?#]+)`)

// CleanReferrer reduces a referrer URL to a display name.
func CleanReferrer(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "Direct"
	}

	refLower := strings.ToLower(ref)
	switch {
	case strings.Contains(refLower, "google."):
		return "Google"
	case strings.Contains(refLower, "bing."):
		return "Bing"
	case strings.Contains(refLower, "duckduckgo."):
		return "DuckDuckGo"
	case strings.Contains(refLower, "naver."):
		return "Naver"
	case strings.Contains(refLower, "daum."):
		return "Daum"
	case strings.Contains(refLower, "github."):
		return "GitHub"
	}

	matches := referrerDomainRegex.FindStringSubmatch(ref)
	if len(matches) > 1 {
		return strings.ToLower(matches[1])
	}

	return "Other"
}

// percent returns part/total*100 rounded to one decimal, or 0 for an empty total.
func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

// competitionRanks assigns "1224" ranks to counts sorted in descending order.
func competitionRanks(counts []int) []int {
	ranks := make([]int, len(counts))
	for i, c := range counts {
		if i > 0 && c == counts[i-1] {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

// ReferrerChart converts a referrer ranking into pie chart points.
func ReferrerChart(records []ReferrerRecord) []ChartSeriesPoint {
	points := make([]ChartSeriesPoint, len(records))
	for i, r := range records {
		points[i] = ChartSeriesPoint{
			Name: r.Referrer,
			Y:    r.Percentage,
			DataLabels: DataLabels{
				Enabled: true,
				Format:  "{point.name}: {point.y:.1f}%",
			},
		}
	}
	// The leading slice gets a larger label without outline.
	if len(points) > 0 {
		outline := "none"
		points[0].DataLabels.Style = &LabelStyle{FontSize: "14px"}
		points[0].DataLabels.TextOutline = &outline
	}
	return points
}
