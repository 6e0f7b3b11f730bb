package views

import (
	"net/url"

	"github.com/eringen/insite/analytics"
)

// SiteConfig holds site-wide settings the templates need.
type SiteConfig struct {
	Name string // SITE_NAME (default "insite")
	URL  string // SITE_URL  (default "http://localhost:3000")
}

// SidebarMenuItem is one entry of the navigation sidebar.
type SidebarMenuItem struct {
	ID    int    `json:"id" yaml:"id"`
	Image string `json:"image" yaml:"image"`
	Menu  string `json:"menu" yaml:"menu"`
	Route string `json:"route" yaml:"route"`
}

// Fallback assets for keys missing from a lookup table.
const (
	DefaultIcon = "/public/icons/default.svg"
	DefaultLogo = "/public/logos/default.svg"
)

// IconLookup maps icon keys to asset paths.
type IconLookup map[string]string

// Icon returns the asset for key, or DefaultIcon when key is unknown.
func (l IconLookup) Icon(key string) string {
	if v, ok := l[key]; ok && v != "" {
		return v
	}
	return DefaultIcon
}

// LogoLookup maps application keys to logo asset paths.
type LogoLookup map[string]string

// Logo returns the asset for key, or DefaultLogo when key is unknown.
func (l LogoLookup) Logo(key string) string {
	if v, ok := l[key]; ok && v != "" {
		return v
	}
	return DefaultLogo
}

// PageData is everything the dashboard shell renders around a layout.
type PageData struct {
	Site         SiteConfig
	Menu         []SidebarMenuItem
	Icons        IconLookup
	Logos        LogoLookup
	Applications []analytics.Item
	AppID        int64
	ActiveRoute  string
	Range        analytics.DateRange
	Filters      url.Values
	Realtime     int
	CSRFToken    string
}
