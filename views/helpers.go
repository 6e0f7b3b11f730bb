package views

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var esc = templ.EscapeString

// write emits HTML fragments in order, stopping at the first error.
func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// sizeStyle renders an inline width/height style.
func sizeStyle(width, height string) string {
	s := ""
	if width != "" {
		s += "width:" + width + ";"
	}
	if height != "" {
		s += "height:" + height + ";"
	}
	return s
}

// NavClass returns the CSS class of a sidebar entry.
func NavClass(active bool) string {
	if active {
		return "nav-item active"
	}
	return "nav-item"
}

// withFilters appends the dashboard filters to a route. Page paths end in
// a slash, the form the server registers them under.
func withFilters(route string, filters url.Values) string {
	if !strings.HasSuffix(route, "/") {
		route += "/"
	}
	if q := filters.Encode(); q != "" {
		return route + "?" + q
	}
	return route
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}
