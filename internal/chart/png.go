package chart

import (
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/rileyhilliard/whm/internal/errors"
)

// PNGTimeFormat labels the x axis of exported history charts.
const PNGTimeFormat = "Jan 02 15:04"

// RenderPNG writes a history chart as a PNG image of the given size in
// pixels. NaN samples are skipped.
func (h *Handle) RenderPNG(w io.Writer, width, height int) error {
	cfg := h.config
	if cfg.Kind != Line {
		return errors.New(errors.ErrData,
			"Only history charts can be exported as images", "")
	}

	var series []gochart.Series
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, ds := range cfg.Datasets {
		xs, ys := points(cfg.Times, ds.Data)
		if len(xs) == 0 {
			continue
		}
		// samples at a single instant have no x range; stretch over a second
		if last := xs[len(xs)-1]; last.Equal(xs[0]) {
			xs = append(xs, last.Add(time.Second))
			ys = append(ys, ys[len(ys)-1])
		}
		for _, y := range ys {
			lo, hi = math.Min(lo, y), math.Max(hi, y)
		}
		color := pngColor(ds.BorderColor)
		series = append(series, gochart.TimeSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    2,
			},
		})
	}
	if len(series) == 0 {
		return errors.New(errors.ErrData, "Nothing to plot",
			"Pick fields that have recorded values")
	}

	yAxis := gochart.YAxis{}
	if lo == hi {
		yAxis.Range = &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	ch := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{ValueFormatter: gochart.TimeValueFormatterWithFormat(PNGTimeFormat)},
		YAxis:      yAxis,
		Series:     series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return errors.WrapWithCode(err, errors.ErrData, "Couldn't render the chart image", "")
	}
	return nil
}

func points(times []time.Time, data []float64) ([]time.Time, []float64) {
	n := len(times)
	if len(data) < n {
		n = len(data)
	}
	xs := make([]time.Time, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(data[i]) || math.IsInf(data[i], 0) {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, data[i])
	}
	return xs, ys
}

func pngColor(c lipgloss.Color) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(string(c), "#"))
}
