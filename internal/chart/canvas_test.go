package chart

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/history"
)

func sampleSeries() history.Series {
	base := time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC)
	s := history.Series{Scope: history.Days}
	for i := 0; i < 5; i++ {
		s.Rows = append(s.Rows, history.Row{
			Time:   base.Add(time.Duration(i) * 24 * time.Hour),
			Values: []float64{float64(10 + i), float64(5 + i), float64(85 - 2*i)},
		})
	}
	s, _ = s.WithFields([]string{"user", "system", "idle"})
	return s
}

func TestDrawCurrent_LegendByKind(t *testing.T) {
	r := NewRenderer()

	bar := r.DrawCurrent("cpu_current", Bar, []string{"a", "b"}, []float64{1, 2})
	assert.Equal(t, Bar, bar.Config().Kind)
	assert.False(t, bar.Config().Options.Legend)

	doughnut := r.DrawCurrent("mem_current", Doughnut, []string{"used", "free"}, []float64{4, 12})
	assert.True(t, doughnut.Config().Options.Legend)
	assert.Equal(t, []lipgloss.Color{"#dbdb7b", "#db7b7b"}, doughnut.Config().Datasets[0].BackgroundColors)
}

func TestDrawCurrent_ReplacesCanvasContent(t *testing.T) {
	r := NewRenderer()
	first := r.DrawCurrent("cpu_current", Bar, []string{"a"}, []float64{1})
	second := r.DrawCurrent("cpu_current", Bar, []string{"a"}, []float64{2})

	assert.True(t, first.Destroyed())
	assert.Same(t, second, r.Canvas("cpu_current").Current())
	assert.Equal(t, 1, r.Canvas("cpu_current").Live())
}

func TestDrawHistory_OneDatasetPerSelectedField(t *testing.T) {
	r := NewRenderer()
	series := sampleSeries()

	h := r.DrawHistory("cpu_history", []string{"idle", "user"}, series, nil)
	cfg := h.Config()

	assert.Equal(t, Line, cfg.Kind)
	require.Len(t, cfg.Datasets, 2)
	assert.Equal(t, "idle", cfg.Datasets[0].Label)
	assert.Equal(t, []float64{85, 83, 81, 79, 77}, cfg.Datasets[0].Data)
	assert.Equal(t, Palette[0], cfg.Datasets[0].BorderColor)
	assert.Equal(t, Palette[1], cfg.Datasets[1].BorderColor)
	assert.False(t, cfg.Datasets[0].Fill)
	assert.Len(t, cfg.Times, 5)
	require.NotNil(t, cfg.Options.Time)
	assert.Equal(t, "day", cfg.Options.Time.Unit)
	assert.Equal(t, "month", cfg.Options.Time.GroupUnit)
}

func TestDrawHistory_RedrawsLeaveOneLiveInstance(t *testing.T) {
	r := NewRenderer()
	series := sampleSeries()

	var h *Handle
	for i := 0; i < 25; i++ {
		h = r.DrawHistory("cpu_history", []string{"user"}, series, h)
	}
	assert.Equal(t, 1, r.Canvas("cpu_history").Live())
	assert.Same(t, h, r.Canvas("cpu_history").Current())
}

func TestDrawHistory_WithoutPreviousLayers(t *testing.T) {
	r := NewRenderer()
	series := sampleSeries()

	r.DrawHistory("cpu_history", []string{"user"}, series, nil)
	r.DrawHistory("cpu_history", []string{"user"}, series, nil)
	assert.Equal(t, 2, r.Canvas("cpu_history").Live(), "layering is observable")
}

func TestDrawHistory_EmptySelection(t *testing.T) {
	r := NewRenderer()
	h := r.DrawHistory("cpu_history", nil, sampleSeries(), nil)

	assert.Empty(t, h.Config().Datasets)
	assert.Equal(t, 1, r.Canvas("cpu_history").Live())
	assert.NotEmpty(t, h.Render(60, 10))
}

func TestPaletteCycles(t *testing.T) {
	fields := make([]string, len(Palette)+2)
	for i := range fields {
		fields[i] = string(rune('a' + i))
	}

	h := NewRenderer().DrawHistory("c", fields, history.Series{}, nil)
	ds := h.Config().Datasets
	assert.Equal(t, ds[0].BorderColor, ds[len(Palette)].BorderColor)
	assert.Equal(t, ds[1].BorderColor, ds[len(Palette)+1].BorderColor)
	assert.NotEqual(t, ds[0].BorderColor, ds[1].BorderColor)
}

func TestHandle_DestroyIsIdempotent(t *testing.T) {
	r := NewRenderer()
	h := r.DrawCurrent("c", Bar, nil, nil)

	h.Destroy()
	h.Destroy()
	var nilHandle *Handle
	nilHandle.Destroy()

	assert.Zero(t, r.Canvas("c").Live())
	assert.Empty(t, h.Render(40, 5))
}

func TestDayTicks(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 1, 30, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 2, 6, 0, 0, 0, time.UTC),
	}

	ticks, groups := DayTicks.Ticks(times)

	var labels []string
	for _, tk := range ticks {
		labels = append(labels, tk.Label)
	}
	assert.Equal(t, []string{"30", "31", "01", "02"}, labels)
	require.Len(t, groups, 2)
	assert.Equal(t, "Jan24", groups[0].Label)
	assert.Equal(t, "Feb24", groups[1].Label)
}
