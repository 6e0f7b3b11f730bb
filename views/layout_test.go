package views

import (
	"bytes"
	"context"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/insite/analytics"
	"github.com/eringen/insite/analytics/templates"
)

func TestTrackingLayoutCounts(t *testing.T) {
	l := TrackingLayout()
	if got := l.Counts(); !reflect.DeepEqual(got, []int{3, 2, 1}) {
		t.Fatalf("Counts() = %v, want [3 2 1]", got)
	}
	if !l.Rows[1].Boxes[0].Spacer {
		t.Error("row 2 should start with a spacer")
	}
	if w := l.Rows[2].Boxes[0].Width; w != WideBoxWidth {
		t.Errorf("row 3 width = %q, want %q", w, WideBoxWidth)
	}
}

func TestLayoutPanelsDistinct(t *testing.T) {
	for name, l := range map[string]Layout{"tracking": TrackingLayout(), "user": UserLayout()} {
		seen := map[templates.PanelKind]bool{}
		for _, k := range l.Panels() {
			if seen[k] {
				t.Errorf("%s layout repeats panel %q", name, k)
			}
			if _, ok := templates.ParsePanelKind(string(k)); !ok {
				t.Errorf("%s layout uses unknown panel %q", name, k)
			}
			seen[k] = true
		}
	}
}

func TestUserLayoutCounts(t *testing.T) {
	if got := UserLayout().Counts(); !reflect.DeepEqual(got, []int{2, 2}) {
		t.Fatalf("Counts() = %v, want [2 2]", got)
	}
}

func pageData() PageData {
	return PageData{
		Site:         SiteConfig{Name: "insite <dev>"},
		Menu:         []SidebarMenuItem{{ID: 1, Image: "tracking", Menu: "Tracking", Route: ""}, {ID: 2, Image: "user", Menu: "Users", Route: "/user"}},
		Icons:        IconLookup{"tracking": "/public/icons/tracking.svg"},
		Applications: []analytics.Item{{ID: 1, Name: "Shop"}, {ID: 2, Name: "Blog"}},
		AppID:        2,
		ActiveRoute:  "/",
		Range:        analytics.DateRange{Start: "2026-10-01", End: "2026-10-07", Past: "2026.09.24 - 2026.09.30", Latest: "2026.10.01 - 2026.10.07"},
		Filters:      url.Values{"app": {"2"}},
		Realtime:     4,
		CSRFToken:    "tok",
	}
}

func TestMainPageRender(t *testing.T) {
	var buf bytes.Buffer
	if err := MainPage(pageData()).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Inflow Sources", "Page Exit Rate", "Bounce Count", "Entry Pages", "Exit Pages", "Page Flow",
		`class="invisible-box"`,
		`/fragments/panel/referrers?app=2`,
		`<option value="2" selected>Blog</option>`,
		"insite &lt;dev&gt;",
		`/public/icons/default.svg`,
		`href="/user/?app=2"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("main page missing %q", want)
		}
	}
	if strings.Count(html, `class="default-box"`) != 6 {
		t.Errorf("expected 6 boxes, got %d", strings.Count(html, `class="default-box"`))
	}
	if !strings.Contains(html, `<li class="nav-item active" data-menu-id="1">`) {
		t.Error("tracking entry should be active")
	}
}

func TestUserPageRender(t *testing.T) {
	d := pageData()
	d.ActiveRoute = "/user"
	var buf bytes.Buffer
	if err := UserPage(d).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"User Counts", "Button Counts", "Daily Button Clicks", "Anomalies"} {
		if !strings.Contains(html, want) {
			t.Errorf("user page missing %q", want)
		}
	}
	if strings.Contains(html, "invisible-box") {
		t.Error("user page has no spacer")
	}
}

func TestLookupFallbacks(t *testing.T) {
	var icons IconLookup
	if icons.Icon("x") != DefaultIcon {
		t.Error("nil icon lookup should fall back")
	}
	logos := LogoLookup{"1": "/public/logos/app-1.png", "2": ""}
	if logos.Logo("1") != "/public/logos/app-1.png" {
		t.Error("expected stored logo")
	}
	if logos.Logo("2") != DefaultLogo || logos.Logo("3") != DefaultLogo {
		t.Error("empty and missing logos should fall back")
	}
}

func TestErrorPages(t *testing.T) {
	site := SiteConfig{Name: "insite"}
	for code, cmp := range map[string]templ.Component{"404": NotFound(site), "500": ServerError(site)} {
		var buf bytes.Buffer
		if err := cmp.Render(context.Background(), &buf); err != nil {
			t.Fatalf("Render: %v", err)
		}
		if !strings.Contains(buf.String(), "<h1>"+code+"</h1>") {
			t.Errorf("error page %s missing code", code)
		}
	}
}
