package chart

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/whm/internal/history"
)

// Renderer draws charts onto canvases.
type Renderer struct {
	canvases map[string]*Canvas
}

// NewRenderer creates a renderer with no canvases.
func NewRenderer() *Renderer {
	return &Renderer{canvases: make(map[string]*Canvas)}
}

// Canvas returns the canvas with the given id, creating it on first use.
func (r *Renderer) Canvas(id string) *Canvas {
	c, ok := r.canvases[id]
	if !ok {
		c = &Canvas{id: id}
		r.canvases[id] = c
	}
	return c
}

// Canvas is a drawing surface. It should hold one live chart at a time.
type Canvas struct {
	id   string
	live []*Handle
}

// ID returns the canvas id.
func (c *Canvas) ID() string {
	return c.id
}

// Live returns the number of chart instances bound to the canvas.
func (c *Canvas) Live() int {
	return len(c.live)
}

// Current returns the most recently bound live chart, or nil.
func (c *Canvas) Current() *Handle {
	if len(c.live) == 0 {
		return nil
	}
	return c.live[len(c.live)-1]
}

func (c *Canvas) bind(cfg Config) *Handle {
	h := &Handle{canvas: c, config: cfg}
	c.live = append(c.live, h)
	return h
}

func (c *Canvas) release(h *Handle) {
	for i, live := range c.live {
		if live == h {
			c.live = append(c.live[:i], c.live[i+1:]...)
			return
		}
	}
}

// Handle is a chart instance bound to a canvas.
type Handle struct {
	canvas    *Canvas
	config    Config
	destroyed bool
}

// Config returns the configuration the chart was drawn with.
func (h *Handle) Config() Config {
	return h.config
}

// CanvasID returns the id of the canvas the chart is bound to.
func (h *Handle) CanvasID() string {
	return h.canvas.id
}

// Destroy unbinds the chart from its canvas. Safe on nil and repeated calls.
func (h *Handle) Destroy() {
	if h == nil || h.destroyed {
		return
	}
	h.destroyed = true
	h.canvas.release(h)
}

// Destroyed reports whether Destroy has been called.
func (h *Handle) Destroyed() bool {
	return h.destroyed
}

// DrawCurrent draws a categorical snapshot chart. Bar charts hide the
// legend, doughnut charts show it. Anything already on the canvas is
// destroyed.
func (r *Renderer) DrawCurrent(canvasID string, kind Kind, labels []string, values []float64) *Handle {
	c := r.Canvas(canvasID)
	for c.Current() != nil {
		c.Current().Destroy()
	}

	if kind != Doughnut {
		kind = Bar
	}
	cfg := Config{
		Kind:   kind,
		Labels: append([]string(nil), labels...),
		Datasets: []Dataset{{
			Data:             append([]float64(nil), values...),
			BackgroundColors: assignColors(len(values)),
		}},
		Options: Options{Legend: kind == Doughnut},
	}
	return c.bind(cfg)
}

// DrawHistory destroys previous, then draws one line per selected field of
// series against its timestamps. Fields missing from series get an empty
// line. An empty selection draws an empty chart.
func (r *Renderer) DrawHistory(canvasID string, selected []string, series history.Series, previous *Handle) *Handle {
	previous.Destroy()

	datasets := make([]Dataset, 0, len(selected))
	for i, field := range selected {
		datasets = append(datasets, Dataset{
			Label:            field,
			Data:             series.Column(field),
			BorderColor:      ColorFor(i),
			BackgroundColors: []lipgloss.Color{LineBackground},
			Fill:             false,
		})
	}

	axis := DayTicks
	cfg := Config{
		Kind:     Line,
		Times:    series.Times(),
		Datasets: datasets,
		Options:  Options{Legend: true, Time: &axis},
	}
	return r.Canvas(canvasID).bind(cfg)
}
