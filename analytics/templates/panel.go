package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// write emits HTML fragments in order, stopping at the first error.
func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// PanelURL returns the fragment endpoint for kind with the given filters.
func PanelURL(kind PanelKind, filters url.Values) string {
	u := "/fragments/panel/" + url.PathEscape(string(kind))
	if q := filters.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// PanelLoader is the placeholder a dashboard box renders; htmx swaps it for
// the StatsView of kind once the page has loaded.
func PanelLoader(kind PanelKind, filters url.Values) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w,
			`<div class="stats-view loading" data-panel="`, templ.EscapeString(string(kind)),
			`" hx-get="`, templ.EscapeString(PanelURL(kind, filters)),
			`" hx-trigger="load, refresh from:body" hx-swap="innerHTML">Loading…</div>`)
	})
}

// StatsView is the statistics visualization: a bar chart above a ranking table.
func StatsView(vm *PanelViewModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<div class="stats-view" data-panel="`, templ.EscapeString(string(vm.Kind)), `"`); err != nil {
			return err
		}
		if vm.SeriesJSON != "" {
			if err := write(w, ` data-series="`, templ.EscapeString(vm.SeriesJSON), `"`); err != nil {
				return err
			}
		}
		if err := write(w, `>`); err != nil {
			return err
		}
		if len(vm.Rows) == 0 {
			return write(w, `<p class="empty">No data for this period</p></div>`)
		}
		if err := bars(w, vm.Bars); err != nil {
			return err
		}
		if err := table(w, vm.Columns, vm.Rows); err != nil {
			return err
		}
		return write(w, `</div>`)
	})
}

func bars(w io.Writer, items []BarViewModel) error {
	if len(items) == 0 {
		return nil
	}
	if err := write(w, `<ul class="bars">`); err != nil {
		return err
	}
	for _, b := range items {
		err := write(w,
			`<li><span class="bar-label">`, templ.EscapeString(b.Label), `</span>`,
			`<span class="bar" style="width:`, fmt.Sprintf("%.1f", b.Percent), `%"></span>`,
			`<span class="bar-value">`, templ.EscapeString(b.Value), `</span></li>`)
		if err != nil {
			return err
		}
	}
	return write(w, `</ul>`)
}

func table(w io.Writer, columns []string, rows []RowViewModel) error {
	var b strings.Builder
	b.WriteString(`<table class="stats-table"><thead><tr>`)
	for _, c := range columns {
		b.WriteString(`<th>` + templ.EscapeString(c) + `</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString(`<tr>`)
		for _, cell := range r.Cells {
			b.WriteString(`<td>` + templ.EscapeString(cell) + `</td>`)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
	return write(w, b.String())
}

// PanelError replaces a panel whose data could not be loaded.
func PanelError() templ.Component {
	return templ.Raw(`<div class="stats-view error">Error loading data</div>`)
}

// RealtimeCounter shows the live visitor count, updated over the websocket.
func RealtimeCounter(count int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w, `<span class="realtime" data-realtime>`, fmt.Sprint(count), `</span>`)
	})
}
