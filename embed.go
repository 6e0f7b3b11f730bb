package insite

import "embed"

// EmbeddedAssets contains the assets shipped with the dashboard:
// dashboard.css, dashboard.js, menu.yaml and the default icons and logos.
//
//go:embed embedded
var EmbeddedAssets embed.FS
