package insite

import (
	"github.com/a-h/templ"

	"github.com/eringen/insite/views"
)

// Route binds a URL path to a dashboard page.
type Route struct {
	ID   string
	Path string
	Page func(views.PageData) templ.Component
}

// Routes returns the dashboard route table. The empty path is the router
// root.
func Routes() []Route {
	return []Route{
		{ID: "main-page", Path: "", Page: views.MainPage},
		{ID: "user-page", Path: "/user", Page: views.UserPage},
	}
}

// Resolve returns the first route matching path. A trailing slash is
// ignored, so "/" resolves to the root route.
func Resolve(path string) (Route, bool) {
	p := trimSlash(path)
	for _, r := range Routes() {
		if r.Path == p {
			return r, true
		}
	}
	return Route{}, false
}

// echoPath is the path a route is registered under; Echo requires a
// leading slash and the trailing-slash middleware redirects to one.
func (r Route) echoPath() string {
	return r.Path + "/"
}

func trimSlash(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
