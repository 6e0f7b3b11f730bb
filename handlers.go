package insite

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/eringen/insite/analytics"
	"github.com/eringen/insite/views"
)

// pageHandler renders route r around the current filters.
func (a *App) pageHandler(r Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := a.pageData(c, r)
		if err != nil {
			return err
		}
		return Render(c, r.Page(d))
	}
}

func (a *App) pageData(c echo.Context, r Route) (views.PageData, error) {
	ctx := c.Request().Context()
	q, err := a.analyticsHandler.ParseQuery(c)
	if err != nil {
		return views.PageData{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	apps, err := a.Analytics.ListApplications(ctx)
	if err != nil {
		return views.PageData{}, err
	}
	items := make([]analytics.Item, len(apps))
	for i, app := range apps {
		items[i] = analytics.Item{ID: app.ID, Name: app.Name}
	}
	realtime, err := a.Analytics.CountRecentCookies(ctx, q.AppID)
	if err != nil {
		c.Logger().Warnf("realtime count: %v", err)
	}

	active := r.Path
	if active == "" {
		active = "/"
	}
	return views.PageData{
		Site:         a.siteView(),
		Menu:         a.menu.Items,
		Icons:        a.menu.Icons,
		Logos:        logoLookup(apps),
		Applications: items,
		AppID:        q.AppID,
		ActiveRoute:  active,
		Range:        q.Period.Range(),
		Filters:      q.Filters(),
		Realtime:     realtime,
		CSRFToken:    CsrfToken(c),
	}, nil
}

func (a *App) siteView() views.SiteConfig {
	return views.SiteConfig{Name: a.Config.Name, URL: a.Config.URL}
}

// handleMenu returns the sidebar entries as JSON.
func (a *App) handleMenu(c echo.Context) error {
	items := a.menu.Items
	if items == nil {
		items = []views.SidebarMenuItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// handleAsset serves /public/* from the static dir, falling back to the
// embedded assets.
func (a *App) handleAsset(c echo.Context) error {
	name := path.Clean("/" + c.Param("*"))[1:]
	if name == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	local := filepath.Join(a.staticDir, filepath.FromSlash(name))
	if st, err := os.Stat(local); err == nil && !st.IsDir() {
		return c.File(local)
	}
	sub, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		return err
	}
	if _, err := fs.Stat(sub, name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	return c.FileFS(name, sub)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, views.DefaultLogo)
}

func handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.siteView()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, views.ServerError(a.siteView()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
