package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/insite/analytics/templates"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	store          *Store
	collector      *Collector
	hub            *Hub
	cache          *PanelCache
	collectLimiter *RateLimiter
	now            func() time.Time
}

// HandlerConfig tunes a Handler.
type HandlerConfig struct {
	AbnormalRequestCount int
	PanelCacheTTL        time.Duration
}

// NewHandler creates a new analytics handler. hub may be nil to disable
// realtime notices. The collect endpoints are rate-limited to 60 requests
// per IP per minute.
func NewHandler(store *Store, hub *Hub, cfg HandlerConfig) *Handler {
	var pub Publisher
	if hub != nil {
		pub = hub
	}
	return &Handler{
		store:          store,
		collector:      NewCollector(store, pub, cfg.AbnormalRequestCount),
		hub:            hub,
		cache:          NewPanelCache(cfg.PanelCacheTTL),
		collectLimiter: NewRateLimiter(60, time.Minute),
		now:            time.Now,
	}
}

// Close stops background work owned by the handler.
func (h *Handler) Close() {
	h.collectLimiter.Stop()
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// CollectData handles page view events sent by tracked sites.
func (h *Handler) CollectData(c echo.Context) error {
	if !h.collectLimiter.Allow(c.RealIP()) {
		return errorJSON(c, http.StatusTooManyRequests, "Too many requests")
	}
	if IsBot(c.Request().UserAgent()) {
		return c.NoContent(http.StatusNoContent)
	}

	var req PageRequest
	if err := DecodeStrict(c.Request().Body, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	ctx := c.Request().Context()
	app, err := h.store.VerifyApplication(ctx, req.ApplicationToken, req.ApplicationURL)
	if err != nil {
		return h.verifyFailed(c, err)
	}

	abnormal, err := h.collector.RecordPage(ctx, app, &req, c.Request().UserAgent())
	if err != nil {
		c.Logger().Errorf("Failed to record page event: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	h.cache.InvalidateApp(app.ID)
	if abnormal {
		c.Logger().Warnf("abnormal activity: app=%d cookie=%s page=%s", app.ID, req.CookieID, req.CurrentURL)
	}
	return c.NoContent(http.StatusNoContent)
}

// CollectButton handles button click events sent by tracked sites.
func (h *Handler) CollectButton(c echo.Context) error {
	if !h.collectLimiter.Allow(c.RealIP()) {
		return errorJSON(c, http.StatusTooManyRequests, "Too many requests")
	}
	if IsBot(c.Request().UserAgent()) {
		return c.NoContent(http.StatusNoContent)
	}

	var req ButtonRequest
	if err := DecodeStrict(c.Request().Body, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	ctx := c.Request().Context()
	app, err := h.store.VerifyApplication(ctx, req.ApplicationToken, req.ApplicationURL)
	if err != nil {
		return h.verifyFailed(c, err)
	}

	if _, err := h.collector.RecordButton(ctx, app, &req); err != nil {
		c.Logger().Errorf("Failed to record button event: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	h.cache.InvalidateApp(app.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) verifyFailed(c echo.Context, err error) error {
	if errors.Is(err, ErrUnknownApplication) {
		return errorJSON(c, http.StatusUnauthorized, "Unknown application")
	}
	c.Logger().Errorf("Failed to verify application: %v", err)
	return errorJSON(c, http.StatusInternalServerError, "Internal server error")
}

// ParseQuery reads the app/start/end/limit filters shared by read endpoints.
func (h *Handler) ParseQuery(c echo.Context) (Query, error) {
	var q Query
	if s := c.QueryParam("app"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return Query{}, fmt.Errorf("invalid app %q", s)
		}
		q.AppID = id
	} else {
		apps, err := h.store.ListApplications(c.Request().Context())
		if err != nil {
			return Query{}, err
		}
		if len(apps) > 0 {
			q.AppID = apps[0].ID
		}
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 100 {
			return Query{}, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	p, err := ParsePeriod(c.QueryParam("start"), c.QueryParam("end"), h.now())
	if err != nil {
		return Query{}, err
	}
	q.Period = p
	return q, nil
}

// Filters returns the query values that reproduce q in panel URLs.
func (q Query) Filters() url.Values {
	v := url.Values{}
	if q.AppID > 0 {
		v.Set("app", strconv.FormatInt(q.AppID, 10))
	}
	r := q.Period.Range()
	v.Set("start", r.Start)
	v.Set("end", r.End)
	return v
}

func (q Query) cacheKey(kind string) PanelKey {
	return PanelKey{Kind: kind, AppID: q.AppID, From: q.Period.From.Unix(), To: q.Period.To.Unix(), Limit: q.limit()}
}

// jsonEndpoint adapts an aggregate into a cached JSON handler.
func jsonEndpoint[T any](h *Handler, name string, fetch func(context.Context, Query) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		q, err := h.ParseQuery(c)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		v, err := h.cache.Get(q.cacheKey(name), func() (any, error) {
			return fetch(c.Request().Context(), q)
		})
		if err != nil {
			c.Logger().Errorf("Failed to get %s: %v", name, err)
			return errorJSON(c, http.StatusInternalServerError, "Internal server error")
		}
		return c.JSON(http.StatusOK, v)
	}
}

// GetApplications lists registered applications as id/name items.
func (h *Handler) GetApplications(c echo.Context) error {
	items, err := h.store.ApplicationItems(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("Failed to list applications: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	if items == nil {
		items = []Item{}
	}
	return c.JSON(http.StatusOK, items)
}

// GetRange returns the resolved date range for the given filters.
func (h *Handler) GetRange(c echo.Context) error {
	q, err := h.ParseQuery(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, q.Period.Range())
}

// GetRealtime returns the number of visitors seen in the last five minutes.
func (h *Handler) GetRealtime(c echo.Context) error {
	q, err := h.ParseQuery(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	n, err := h.store.CountRecentCookies(c.Request().Context(), q.AppID)
	if err != nil {
		c.Logger().Errorf("Failed to count realtime visitors: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, map[string]int{"realtime": n})
}

// GetPanelFragment renders one statistics panel as an HTML fragment (htmx).
func (h *Handler) GetPanelFragment(c echo.Context) error {
	kind, ok := templates.ParsePanelKind(c.Param("kind"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	q, err := h.ParseQuery(c)
	if err != nil {
		return c.HTML(http.StatusBadRequest, "<div class='stats-view error'>Invalid filters</div>")
	}
	v, err := h.cache.Get(q.cacheKey("panel:"+string(kind)), func() (any, error) {
		return h.store.LoadPanel(c.Request().Context(), kind, q)
	})
	if err != nil {
		c.Logger().Errorf("Failed to load panel %s: %v", kind, err)
		return renderFragment(c, templates.PanelError())
	}
	return renderFragment(c, templates.StatsView(v.(*templates.PanelViewModel)))
}

func renderFragment(c echo.Context, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return cmp.Render(c.Request().Context(), c.Response())
}

// RegisterRoutes registers analytics routes with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo, publicGroup *echo.Group, authMiddleware echo.MiddlewareFunc) {
	// Public endpoints for tracked sites (CSRF exempt)
	publicGroup.POST("/api/collect/data", h.CollectData)
	publicGroup.POST("/api/collect/button", h.CollectButton)

	// Dashboard API endpoints (JSON)
	api := e.Group("/api/stats", authMiddleware)
	api.GET("/applications", h.GetApplications)
	api.GET("/range", h.GetRange)
	api.GET("/realtime", h.GetRealtime)
	api.GET("/referrers", jsonEndpoint(h, "referrers", h.store.ReferrerRanking))
	api.GET("/referrers/chart", jsonEndpoint(h, "referrers-chart", func(ctx context.Context, q Query) ([]ChartSeriesPoint, error) {
		recs, err := h.store.ReferrerRanking(ctx, q)
		if err != nil {
			return nil, err
		}
		return ReferrerChart(recs), nil
	}))
	api.GET("/user-counts", jsonEndpoint(h, "user-counts", h.store.UserCounts))
	api.GET("/entry-pages", jsonEndpoint(h, "entry-pages", h.store.EntryPages))
	api.GET("/exit-pages", jsonEndpoint(h, "exit-pages", h.store.ExitPages))
	api.GET("/exit-rates", jsonEndpoint(h, "exit-rates", h.store.ExitRates))
	api.GET("/bounces", jsonEndpoint(h, "bounces", h.store.Bounces))
	api.GET("/page-flow", jsonEndpoint(h, "page-flow", h.store.PageFlow))
	api.GET("/buttons", jsonEndpoint(h, "buttons", h.store.ButtonDaily))
	api.GET("/button-counts", jsonEndpoint(h, "button-counts", h.store.ButtonCounts))
	api.GET("/anomalies", jsonEndpoint(h, "anomalies", h.store.Anomalies))
	api.GET("/overview", jsonEndpoint(h, "overview", h.store.Overview))

	// Fragment endpoints (HTML for htmx)
	e.GET("/fragments/panel/:kind", h.GetPanelFragment, authMiddleware)

	if h.hub != nil {
		e.GET("/ws/realtime", h.hub.ServeWS, authMiddleware)
	}
}
