package views

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/insite/analytics/templates"
)

// head writes the document head shared by every page.
func head(w io.Writer, site SiteConfig, title string) error {
	return write(w,
		`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
		`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		`<title>`, esc(title), ` | `, esc(site.Name), `</title>`,
		`<link rel="stylesheet" href="/public/dashboard.css">`,
		`<script src="/public/dashboard.js" defer></script>`,
		`</head>`)
}

// Shell renders the dashboard frame (sidebar, filter header) around body.
func Shell(d PageData, title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := head(w, d.Site, title); err != nil {
			return err
		}
		if err := write(w, `<body><div class="shell">`); err != nil {
			return err
		}
		if err := Sidebar(d).Render(ctx, w); err != nil {
			return err
		}
		if err := write(w, `<main class="main">`); err != nil {
			return err
		}
		if err := header(ctx, w, d, title); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</main></div></body></html>`)
	})
}

// Sidebar renders the navigation menu.
func Sidebar(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<nav class="sidebar"><a class="brand" href="/"><img src="`, esc(d.Logos.Logo(itoa64(d.AppID))),
			`" alt="" width="32" height="32"><span>`, esc(d.Site.Name), `</span></a><ul>`); err != nil {
			return err
		}
		for _, m := range d.Menu {
			route := m.Route
			if route == "" {
				route = "/"
			}
			if err := write(w,
				`<li class="`, NavClass(route == d.ActiveRoute), `" data-menu-id="`, strconv.Itoa(m.ID), `">`,
				`<a href="`, esc(withFilters(route, d.Filters)), `"><img src="`, esc(d.Icons.Icon(m.Image)),
				`" alt="" width="20" height="20"><span>`, esc(m.Menu), `</span></a></li>`); err != nil {
				return err
			}
		}
		return write(w,
			`</ul><form method="post" action="/admin/logout/"><input type="hidden" name="_csrf" value="`,
			esc(d.CSRFToken), `"><button type="submit">Log out</button></form></nav>`)
	})
}

func header(ctx context.Context, w io.Writer, d PageData, title string) error {
	if err := write(w,
		`<header class="filters"><h1>`, esc(title), `</h1>`,
		`<form method="get" class="filter-form"><select name="app">`); err != nil {
		return err
	}
	for _, a := range d.Applications {
		selected := ""
		if a.ID == d.AppID {
			selected = ` selected`
		}
		if err := write(w, `<option value="`, itoa64(a.ID), `"`, selected, `>`, esc(a.Name), `</option>`); err != nil {
			return err
		}
	}
	if err := write(w,
		`</select>`,
		`<input type="date" name="start" value="`, esc(d.Range.Start), `">`,
		`<input type="date" name="end" value="`, esc(d.Range.End), `">`,
		`<button type="submit">Apply</button></form>`,
		`<p class="range"><span class="past">`, esc(d.Range.Past), `</span>`,
		`<span class="latest">`, esc(d.Range.Latest), `</span></p>`,
		`<p class="live">Live visitors `); err != nil {
		return err
	}
	if err := templates.RealtimeCounter(d.Realtime).Render(ctx, w); err != nil {
		return err
	}
	return write(w, `</p></header>`)
}

// LayoutView renders a Layout; every box embeds the panel loader of its kind.
func LayoutView(l Layout, filters url.Values) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, row := range l.Rows {
			if err := write(w, `<div class="row">`); err != nil {
				return err
			}
			for _, b := range row.Boxes {
				if b.Spacer {
					if err := write(w, `<div class="invisible-box" style="`, sizeStyle(b.Width, b.Height), `"></div>`); err != nil {
						return err
					}
					continue
				}
				if err := write(w,
					`<section class="default-box" style="`, sizeStyle(b.Width, b.Height), `">`,
					`<h2 class="title-box" style="`, sizeStyle("", TitleHeight), `font-size:`, TitleFontSize, `">`,
					esc(b.Title), `</h2><div class="content"><div class="text-box" style="`,
					sizeStyle(TextBoxWidth, TextBoxHeight), `">`); err != nil {
					return err
				}
				if err := templates.PanelLoader(b.Panel, filters).Render(ctx, w); err != nil {
					return err
				}
				if err := write(w, `</div></div></section>`); err != nil {
					return err
				}
			}
			if err := write(w, `</div>`); err != nil {
				return err
			}
		}
		return nil
	})
}

// MainPage is the traffic tracking dashboard.
func MainPage(d PageData) templ.Component {
	return Shell(d, "Tracking", LayoutView(TrackingLayout(), d.Filters))
}

// UserPage is the visitor and interaction dashboard.
func UserPage(d PageData) templ.Component {
	return Shell(d, "Users", LayoutView(UserLayout(), d.Filters))
}

// Login renders the admin password form.
func Login(site SiteConfig, showError bool, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := head(w, site, "Log in"); err != nil {
			return err
		}
		msg := ""
		if showError {
			msg = `<p class="error">Wrong password.</p>`
		}
		return write(w,
			`<body class="login"><form method="post" action="/admin/login/" class="login-form">`,
			`<h1>`, esc(site.Name), `</h1>`, msg,
			`<input type="hidden" name="_csrf" value="`, esc(csrfToken), `">`,
			`<input type="password" name="password" placeholder="Password" autofocus required>`,
			`<button type="submit">Log in</button></form></body></html>`)
	})
}

// NotFound is rendered for any path outside the route table.
func NotFound(site SiteConfig) templ.Component {
	return errorPage(site, "404", "This page does not exist.")
}

// ServerError is rendered for unexpected failures.
func ServerError(site SiteConfig) templ.Component {
	return errorPage(site, "500", "Something went wrong.")
}

func errorPage(site SiteConfig, code, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := head(w, site, code); err != nil {
			return err
		}
		return write(w,
			`<body class="error-page"><h1>`, code, `</h1><p>`, esc(message),
			`</p><a href="/">Back to dashboard</a></body></html>`)
	})
}
