package chart

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func init() {
	// Force TrueColor output in tests so we can verify ANSI color codes
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestFindRange(t *testing.T) {
	tests := []struct {
		name    string
		data    []float64
		wantMin float64
		wantMax float64
	}{
		{"empty uses percentage range", nil, 0, 100},
		{"percentage data", []float64{10, 50, 90}, 0, 100},
		{"wide data", []float64{-50, 200, 500}, -50, 500},
		{"NaN ignored", []float64{math.NaN(), 150, 300}, 150, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minVal, maxVal := findRange([]Dataset{{Data: tt.data}})
			assert.Equal(t, tt.wantMin, minVal)
			assert.Equal(t, tt.wantMax, maxVal)
		})
	}
}

func TestPlotColumns_LastSampleWins(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Minute), base.Add(time.Hour)}

	cols := plotColumns(times, 4)
	assert.Equal(t, []int{0, 0, 3}, cols)
}

func TestRenderLine_UsesDatasetColors(t *testing.T) {
	h := NewRenderer().DrawHistory("cpu_history", []string{"user", "idle"}, sampleSeries(), nil)
	out := h.Render(60, 10)

	assert.Contains(t, out, "38;2;219;219;123", "first palette color")
	assert.Contains(t, out, "38;2;219;123;123", "second palette color")
	assert.Contains(t, out, "user")
	assert.Contains(t, out, "idle")
	assert.Contains(t, out, "Mar24")
	assert.LessOrEqual(t, len(strings.Split(out, "\n")), 10)
}

func TestRenderLine_TooSmall(t *testing.T) {
	h := NewRenderer().DrawHistory("c", []string{"user"}, sampleSeries(), nil)
	assert.Contains(t, h.Render(5, 3), "too small")
}

func TestRenderBars(t *testing.T) {
	h := NewRenderer().DrawCurrent("c", Bar, []string{"temp1_input", "temp1_crit"}, []float64{45, 100})
	out := h.Render(40, 5)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "temp1_input")
	assert.Contains(t, lines[1], "100")
	for _, line := range lines {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
}

func TestRenderDoughnut(t *testing.T) {
	h := NewRenderer().DrawCurrent("c", Doughnut, []string{"user", "system", "idle"}, []float64{10, 5, 85})
	out := h.Render(40, 5)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4, "bar plus one legend line per category")
	assert.Equal(t, 40, lipgloss.Width(lines[0]))
	assert.Contains(t, lines[3], "idle")
	assert.Contains(t, lines[3], "(85%)")
}

func TestRenderDoughnut_AllZero(t *testing.T) {
	h := NewRenderer().DrawCurrent("c", Doughnut, []string{"used"}, []float64{0})
	assert.Contains(t, h.Render(40, 5), "no data")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "12.5", formatValue(12.5))
	assert.Equal(t, "85", formatValue(85))
	assert.Equal(t, "-", formatValue(math.NaN()))
}
