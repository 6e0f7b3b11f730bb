package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/eringen/insite/analytics/templates"
)

// LoadPanel computes the view model of one panel kind.
func (s *Store) LoadPanel(ctx context.Context, kind templates.PanelKind, q Query) (*templates.PanelViewModel, error) {
	switch kind {
	case templates.PanelReferrers:
		recs, err := s.ReferrerRanking(ctx, q)
		if err != nil {
			return nil, err
		}
		return referrerPanel(recs), nil
	case templates.PanelExitRate:
		recs, err := s.ExitRates(ctx, q)
		if err != nil {
			return nil, err
		}
		return exitRatePanel(recs), nil
	case templates.PanelBounces:
		recs, err := s.Bounces(ctx, q)
		if err != nil {
			return nil, err
		}
		return pagePanel(kind, recs), nil
	case templates.PanelEntryPages:
		recs, err := s.EntryPages(ctx, q)
		if err != nil {
			return nil, err
		}
		return pagePanel(kind, recs), nil
	case templates.PanelExitPages:
		recs, err := s.ExitPages(ctx, q)
		if err != nil {
			return nil, err
		}
		return pagePanel(kind, recs), nil
	case templates.PanelPageFlow:
		recs, err := s.PageFlow(ctx, q)
		if err != nil {
			return nil, err
		}
		return flowPanel(recs), nil
	case templates.PanelUserCounts:
		recs, err := s.UserCounts(ctx, q)
		if err != nil {
			return nil, err
		}
		return userCountPanel(recs), nil
	case templates.PanelButtonCounts:
		recs, err := s.ButtonCounts(ctx, q)
		if err != nil {
			return nil, err
		}
		return buttonCountPanel(recs), nil
	case templates.PanelButtonDaily:
		recs, err := s.ButtonDaily(ctx, q)
		if err != nil {
			return nil, err
		}
		return buttonDailyPanel(recs), nil
	case templates.PanelAnomalies:
		recs, err := s.Anomalies(ctx, q)
		if err != nil {
			return nil, err
		}
		return anomalyPanel(recs), nil
	}
	return nil, fmt.Errorf("load panel %q: %w", kind, ErrNotFound)
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// scaleBars turns raw values into bars sized against the largest one.
func scaleBars(labels []string, values []float64, format func(float64) string) []templates.BarViewModel {
	maxV := 0.0
	for _, v := range values {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]templates.BarViewModel, len(values))
	for i, v := range values {
		width := 0.0
		if maxV > 0 {
			width = v * 100 / maxV
		}
		out[i] = templates.BarViewModel{Label: labels[i], Value: format(v), Percent: width}
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }

func countFormat(v float64) string { return strconv.Itoa(int(v)) }

func referrerPanel(recs []ReferrerRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelReferrers,
		Columns: []string{"Rank", "Referrer", "Count", "Share"},
	}
	labels := make([]string, len(recs))
	values := make([]float64, len(recs))
	for i, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{
			itoa(r.Rank), r.Referrer, itoa(r.Count), pct(r.Percentage),
		}})
		labels[i], values[i] = r.Referrer, r.Percentage
	}
	vm.Bars = scaleBars(labels, values, pct)
	if b, err := json.Marshal(ReferrerChart(recs)); err == nil && len(recs) > 0 {
		vm.SeriesJSON = string(b)
	}
	return vm
}

func exitRatePanel(recs []ExitRateRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelExitRate,
		Columns: []string{"Page", "Views", "Exits", "Exit rate"},
	}
	labels := make([]string, len(recs))
	values := make([]float64, len(recs))
	for i, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{
			r.Page, itoa(r.Views), itoa(r.Exits), pct(r.Rate),
		}})
		labels[i], values[i] = r.Page, r.Rate
	}
	vm.Bars = scaleBars(labels, values, pct)
	return vm
}

func pagePanel(kind templates.PanelKind, recs []PageRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    kind,
		Columns: []string{"Rank", "Page", "Count", "Share"},
	}
	labels := make([]string, len(recs))
	values := make([]float64, len(recs))
	for i, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{
			itoa(r.Rank), r.Page, itoa(r.Count), pct(r.Percentage),
		}})
		labels[i], values[i] = r.Page, float64(r.Count)
	}
	vm.Bars = scaleBars(labels, values, countFormat)
	return vm
}

func flowPanel(recs []FlowRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelPageFlow,
		Columns: []string{"From", "To", "Count"},
	}
	labels := make([]string, len(recs))
	values := make([]float64, len(recs))
	for i, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{r.From, r.To, itoa(r.Count)}})
		labels[i], values[i] = r.From+" → "+r.To, float64(r.Count)
	}
	vm.Bars = scaleBars(labels, values, countFormat)
	return vm
}

func userCountPanel(recs []UserCountRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelUserCounts,
		Columns: []string{"Page", "Users", "Share", "Response time"},
	}
	for _, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{
			r.CurrentPage, itoa(r.Count), pct(r.Percentage), r.ResponseTime,
		}})
	}
	return vm
}

func buttonCountPanel(recs []ButtonCountRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelButtonCounts,
		Columns: []string{"Button", "Clicks", "Clicks per user"},
	}
	labels := make([]string, len(recs))
	values := make([]float64, len(recs))
	for i, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{
			r.Name, itoa(r.Count), strconv.FormatFloat(r.CountPerUser, 'f', 2, 64),
		}})
		labels[i], values[i] = r.Name, float64(r.Count)
	}
	vm.Bars = scaleBars(labels, values, countFormat)
	return vm
}

func buttonDailyPanel(recs []ButtonRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelButtonDaily,
		Columns: []string{"Date", "Button", "Clicks"},
	}
	for _, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{r.Date, r.Name, itoa(r.Counts)}})
	}
	return vm
}

func anomalyPanel(recs []AnomalyRecord) *templates.PanelViewModel {
	vm := &templates.PanelViewModel{
		Kind:    templates.PanelAnomalies,
		Columns: []string{"Time", "Cookie", "Page", "Language", "OS"},
	}
	for _, r := range recs {
		vm.Rows = append(vm.Rows, templates.RowViewModel{Cells: []string{
			r.Time, r.CookieID, r.CurrentURL, r.Language, r.OSID,
		}})
	}
	return vm
}
