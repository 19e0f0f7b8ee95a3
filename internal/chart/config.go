// Package chart builds chart configurations for metric panels and renders
// them on a terminal.
//
// Charts are bound to named canvases. A canvas tracks its live chart
// instances so that a caller replacing a chart can be checked for disposing
// the previous one first.
package chart

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Kind is the chart family.
type Kind int

const (
	Bar Kind = iota
	Doughnut
	Line
)

// String returns the chart type name.
func (k Kind) String() string {
	switch k {
	case Bar:
		return "bar"
	case Doughnut:
		return "doughnut"
	case Line:
		return "line"
	default:
		return "unknown"
	}
}

// Palette is the fixed series palette. Series i gets Palette[i%len(Palette)].
var Palette = []lipgloss.Color{
	"#dbdb7b",
	"#db7b7b",
	"#7b7b7b",
	"#7bdb7b",
	"#7bdbdb",
	"#7b7bdb",
	"#db7bdb",
	"#abdbab",
	"#abdbdb",
}

// LineBackground is the point fill of line datasets.
const LineBackground = lipgloss.Color("#dbdbdb")

// ColorFor returns the palette color of series i.
func ColorFor(i int) lipgloss.Color {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

func assignColors(count int) []lipgloss.Color {
	colors := make([]lipgloss.Color, count)
	for i := range colors {
		colors[i] = ColorFor(i)
	}
	return colors
}

// Dataset is one series of a chart.
type Dataset struct {
	Label string
	Data  []float64

	// BorderColor is the line color of a line dataset.
	BorderColor lipgloss.Color
	// BackgroundColors colors each category of a bar or doughnut dataset,
	// or holds the single point fill of a line dataset.
	BackgroundColors []lipgloss.Color
	Fill             bool
}

// TimeAxis describes a two-level time x axis.
type TimeAxis struct {
	Unit        string // primary tick unit
	TickFormat  string // Go layout of primary ticks
	GroupUnit   string // secondary grouping unit
	GroupFormat string // Go layout of group labels
}

// DayTicks labels each calendar day by day of month and groups days by
// month.
var DayTicks = TimeAxis{
	Unit:        "day",
	TickFormat:  "02",
	GroupUnit:   "month",
	GroupFormat: "Jan06",
}

// Options are chart display options.
type Options struct {
	Legend bool
	Time   *TimeAxis
}

// Config is everything needed to draw one chart.
type Config struct {
	Kind     Kind
	Labels   []string    // categories of a bar or doughnut chart
	Times    []time.Time // x values of a line chart
	Datasets []Dataset
	Options  Options
}

// Tick is one labelled position on a time axis.
type Tick struct {
	At    time.Time
	Label string
}

// Ticks returns the primary ticks (one per calendar day) and the group
// ticks (one per month) spanning times. times must be sorted.
func (a TimeAxis) Ticks(times []time.Time) (ticks, groups []Tick) {
	if len(times) == 0 {
		return nil, nil
	}
	first := times[0].UTC()
	last := times[len(times)-1].UTC()

	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		ticks = append(ticks, Tick{At: day, Label: day.Format(a.TickFormat)})
		day = day.AddDate(0, 0, 1)
	}

	month := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !month.After(last) {
		groups = append(groups, Tick{At: month, Label: month.Format(a.GroupFormat)})
		month = month.AddDate(0, 1, 0)
	}
	return ticks, groups
}
