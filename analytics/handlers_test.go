package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type handlerEnv struct {
	e     *echo.Echo
	h     *Handler
	store *Store
	app   Application
}

func newHandlerEnv(t *testing.T, allow bool) *handlerEnv {
	t.Helper()
	s := newTestStore(t)
	app := newTestApp(t, s, "Shop", "https://shop.example.com")

	e := echo.New()
	e.Validator = NewRequestValidator()
	h := NewHandler(s, nil, HandlerConfig{PanelCacheTTL: time.Minute})
	h.now = func() time.Time { return reportDay }
	t.Cleanup(h.Close)

	auth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allow {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
	h.RegisterRoutes(e, e.Group(""), auth)
	return &handlerEnv{e: e, h: h, store: s, app: app}
}

func (env *handlerEnv) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *handlerEnv) pageBody(extra string) string {
	return `{"applicationToken":"` + env.app.Token + `","applicationUrl":"https://shop.example.com","cookieId":"c1","currentUrl":"/"` + extra + `}`
}

func TestCollectData(t *testing.T) {
	env := newHandlerEnv(t, true)

	rec := env.do(http.MethodPost, "/api/collect/data", env.pageBody(`,"referrer":"https://www.google.com/","responseTime":120`), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	last, err := env.store.LastActivity(context.Background(), MeasurementData, env.app.ID, "c1", time.Now().Add(-time.Hour))
	if err != nil || last == nil {
		t.Fatalf("expected stored event, got %+v, %v", last, err)
	}
}

func TestCollectDataRejects(t *testing.T) {
	env := newHandlerEnv(t, true)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing field", `{"applicationToken":"x","applicationUrl":"https://shop.example.com","cookieId":"c1"}`, http.StatusBadRequest},
		{"unknown field", env.pageBody(`,"extra":true`), http.StatusBadRequest},
		{"invalid url", strings.Replace(env.pageBody(""), "https://shop.example.com", "not a url", 1), http.StatusBadRequest},
		{"negative response time", env.pageBody(`,"responseTime":-1`), http.StatusBadRequest},
		{"unknown token", strings.Replace(env.pageBody(""), env.app.Token, "nope", 1), http.StatusUnauthorized},
		{"wrong site", strings.Replace(env.pageBody(""), "https://shop.example.com", "https://evil.example.com", 1), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/collect/data", tt.body, nil)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestCollectDataSkipsBots(t *testing.T) {
	env := newHandlerEnv(t, true)
	rec := env.do(http.MethodPost, "/api/collect/data", env.pageBody(""), map[string]string{"User-Agent": "Googlebot/2.1"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	last, _ := env.store.LastActivity(context.Background(), MeasurementData, env.app.ID, "c1", time.Now().Add(-time.Hour))
	if last != nil {
		t.Fatal("bot event should not be stored")
	}
}

func TestCollectRateLimited(t *testing.T) {
	env := newHandlerEnv(t, true)
	env.h.collectLimiter.Stop()
	env.h.collectLimiter = NewRateLimiter(1, time.Minute)

	if rec := env.do(http.MethodPost, "/api/collect/data", env.pageBody(""), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/api/collect/data", env.pageBody(""), nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestCollectButton(t *testing.T) {
	env := newHandlerEnv(t, true)
	body := `{"applicationToken":"` + env.app.Token + `","applicationUrl":"https://shop.example.com/","cookieId":"c1","name":"buy","currentUrl":"/pricing"}`
	if rec := env.do(http.MethodPost, "/api/collect/button", body, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodPost, "/api/collect/button", strings.Replace(body, `"name":"buy",`, "", 1), nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name, got %d", rec.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	env := newHandlerEnv(t, true)
	ctx := context.Background()
	for i, ref := range []string{"Google", "Google", "Direct"} {
		if err := env.store.SavePageEvent(ctx, &PageEvent{
			ApplicationID: env.app.ID, ActivityID: string(rune('a' + i)), CookieID: "c1",
			CurrentURL: "/", Referrer: ref, RequestCnt: 1, Timestamp: reportDay,
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := env.do(http.MethodGet, "/api/stats/referrers?start=2026-10-01&end=2026-10-07", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var recs []ReferrerRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Referrer != "Google" || recs[0].Percentage != 66.7 {
		t.Fatalf("referrers = %+v", recs)
	}

	rec = env.do(http.MethodGet, "/api/stats/referrers/chart?start=2026-10-01&end=2026-10-07", "", nil)
	if !strings.Contains(rec.Body.String(), `"textOutline":"none"`) {
		t.Errorf("chart missing leading label style: %s", rec.Body.String())
	}

	// Default range ends at the handler's clock, which includes the events.
	rec = env.do(http.MethodGet, "/api/stats/bounces", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"page":"/"`) {
		t.Errorf("bounces = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/stats/page-flow?start=2026-10-01&end=2026-10-07", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("page-flow = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/stats/overview?start=2026-10-01&end=2026-10-07", "", nil)
	var ov Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &ov); err != nil || len(ov.Referrers) != 2 {
		t.Errorf("overview = %s (%v)", rec.Body.String(), err)
	}
}

func TestStatsRefreshAfterCollect(t *testing.T) {
	env := newHandlerEnv(t, true)
	env.h.now = time.Now

	visitorCount := func() int {
		t.Helper()
		rec := env.do(http.MethodGet, "/api/stats/user-counts", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var recs []UserCountRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 {
			t.Fatalf("user-counts = %+v", recs)
		}
		return recs[0].Count
	}

	if rec := env.do(http.MethodPost, "/api/collect/data", env.pageBody(""), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := visitorCount(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	second := strings.Replace(env.pageBody(""), `"cookieId":"c1"`, `"cookieId":"c2"`, 1)
	if rec := env.do(http.MethodPost, "/api/collect/data", second, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := visitorCount(); got != 2 {
		t.Fatalf("count after second visitor = %d, want 2", got)
	}

	fragment := func() string {
		return env.do(http.MethodGet, "/fragments/panel/button-counts", "", nil).Body.String()
	}
	before := fragment()
	button := `{"applicationToken":"` + env.app.Token + `","applicationUrl":"https://shop.example.com","cookieId":"c1","name":"buy","currentUrl":"/"}`
	if rec := env.do(http.MethodPost, "/api/collect/button", button, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if after := fragment(); after == before || !strings.Contains(after, "buy") {
		t.Errorf("button panel not refreshed: %s", after)
	}
}

func TestStatsBadQuery(t *testing.T) {
	env := newHandlerEnv(t, true)
	for _, target := range []string{
		"/api/stats/referrers?limit=0",
		"/api/stats/referrers?limit=101",
		"/api/stats/referrers?app=abc",
		"/api/stats/referrers?start=2026-13-01",
	} {
		if rec := env.do(http.MethodGet, target, "", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestApplicationsAndRange(t *testing.T) {
	env := newHandlerEnv(t, true)

	rec := env.do(http.MethodGet, "/api/stats/applications", "", nil)
	var items []Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 1 || items[0].Name != "Shop" {
		t.Fatalf("applications = %s (%v)", rec.Body.String(), err)
	}

	rec = env.do(http.MethodGet, "/api/stats/range", "", nil)
	var r DateRange
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatal(err)
	}
	if r.Start != "2026-09-26" || r.End != "2026-10-02" {
		t.Errorf("default range = %+v", r)
	}

	rec = env.do(http.MethodGet, "/api/stats/realtime", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"realtime":0`) {
		t.Errorf("realtime = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatsRequireAuth(t *testing.T) {
	env := newHandlerEnv(t, false)
	for _, target := range []string{"/api/stats/referrers", "/fragments/panel/referrers"} {
		if rec := env.do(http.MethodGet, target, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", target, rec.Code)
		}
	}
	// Collectors stay public.
	if rec := env.do(http.MethodPost, "/api/collect/data", env.pageBody(""), nil); rec.Code != http.StatusNoContent {
		t.Errorf("collect: expected 204, got %d", rec.Code)
	}
}

func TestPanelFragment(t *testing.T) {
	env := newHandlerEnv(t, true)
	if err := env.store.SavePageEvent(context.Background(), &PageEvent{
		ApplicationID: env.app.ID, ActivityID: "a", CookieID: "c1",
		CurrentURL: "/", Referrer: "<script>", RequestCnt: 1, Timestamp: reportDay,
	}); err != nil {
		t.Fatal(err)
	}

	rec := env.do(http.MethodGet, "/fragments/panel/referrers", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMETextHTML) {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-panel="referrers"`) || !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("unexpected fragment: %s", body)
	}
	if strings.Contains(body, "<script>") {
		t.Error("fragment must escape referrers")
	}

	rec = env.do(http.MethodGet, "/fragments/panel/anomalies", "", nil)
	if !strings.Contains(rec.Body.String(), "No data for this period") {
		t.Errorf("expected empty state, got %s", rec.Body.String())
	}

	if rec := env.do(http.MethodGet, "/fragments/panel/unknown", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown panel, got %d", rec.Code)
	}
}
