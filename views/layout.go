package views

import "github.com/eringen/insite/analytics/templates"

// Box dimensions used by the dashboard grid.
const (
	BoxWidth      = "30rem"
	BoxHeight     = "25rem"
	WideBoxWidth  = "102rem"
	TitleHeight   = "10%"
	TitleFontSize = "30px"
	TextBoxWidth  = "90%"
	TextBoxHeight = "90%"
)

// Box is a titled container holding one statistics panel. A spacer box
// reserves grid space and has neither title nor panel.
type Box struct {
	Title  string
	Width  string
	Height string
	Panel  templates.PanelKind
	Spacer bool
}

// Row is one horizontal band of boxes.
type Row struct {
	Boxes []Box
}

// Layout is a fixed arrangement of rows.
type Layout struct {
	Rows []Row
}

// Counts returns the number of non-spacer boxes in each row.
func (l Layout) Counts() []int {
	counts := make([]int, len(l.Rows))
	for i, r := range l.Rows {
		for _, b := range r.Boxes {
			if !b.Spacer {
				counts[i]++
			}
		}
	}
	return counts
}

// Panels returns the panel kinds in render order.
func (l Layout) Panels() []templates.PanelKind {
	var kinds []templates.PanelKind
	for _, r := range l.Rows {
		for _, b := range r.Boxes {
			if !b.Spacer {
				kinds = append(kinds, b.Panel)
			}
		}
	}
	return kinds
}

func box(title string, kind templates.PanelKind) Box {
	return Box{Title: title, Width: BoxWidth, Height: BoxHeight, Panel: kind}
}

func spacer() Box {
	return Box{Width: BoxWidth, Height: BoxHeight, Spacer: true}
}

// TrackingLayout is the main page grid: three boxes, a spacer and two
// boxes, then one wide box.
func TrackingLayout() Layout {
	return Layout{Rows: []Row{
		{Boxes: []Box{
			box("Inflow Sources", templates.PanelReferrers),
			box("Page Exit Rate", templates.PanelExitRate),
			box("Bounce Count", templates.PanelBounces),
		}},
		{Boxes: []Box{
			spacer(),
			box("Entry Pages", templates.PanelEntryPages),
			box("Exit Pages", templates.PanelExitPages),
		}},
		{Boxes: []Box{
			{Title: "Page Flow", Width: WideBoxWidth, Height: BoxHeight, Panel: templates.PanelPageFlow},
		}},
	}}
}

// UserLayout is the user page grid.
func UserLayout() Layout {
	return Layout{Rows: []Row{
		{Boxes: []Box{
			box("User Counts", templates.PanelUserCounts),
			box("Button Counts", templates.PanelButtonCounts),
		}},
		{Boxes: []Box{
			box("Daily Button Clicks", templates.PanelButtonDaily),
			box("Anomalies", templates.PanelAnomalies),
		}},
	}}
}
