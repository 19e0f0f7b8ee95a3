package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 and dot n is bit n-1.
const brailleBase = '\u2800'

// brailleDots maps [row][col] inside a cell to the bit offset of that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

const (
	colorAxis  = lipgloss.Color("#2A2A4A")
	colorMuted = lipgloss.Color("#6B6B8D")
	colorLabel = lipgloss.Color("#B4B4D0")
	colorValue = lipgloss.Color("#FFFFFF")
)

var (
	axisStyle  = lipgloss.NewStyle().Foreground(colorAxis)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle = lipgloss.NewStyle().Foreground(colorLabel)
	valueStyle = lipgloss.NewStyle().Foreground(colorValue)
)

// Render draws the chart into at most width columns and height rows.
// A destroyed handle renders as an empty string.
func (h *Handle) Render(width, height int) string {
	if h == nil || h.destroyed || width <= 0 || height <= 0 {
		return ""
	}
	switch h.config.Kind {
	case Line:
		return renderLine(h.config, width, height)
	case Doughnut:
		return renderDoughnut(h.config, width)
	default:
		return renderBars(h.config, width)
	}
}

// findRange returns the y range over every finite value of every dataset.
// Percentage data (all values within 0-100) gets the fixed range 0-100.
func findRange(datasets []Dataset) (minVal, maxVal float64) {
	first := true
	for _, ds := range datasets {
		for _, v := range ds.Data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if first {
				minVal, maxVal = v, v
				first = false
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if first || (minVal >= 0 && maxVal <= 100) {
		return 0, 100
	}
	return minVal, maxVal
}

func normalizeValue(val, minVal, maxVal float64) float64 {
	if maxVal > minVal {
		return (val - minVal) / (maxVal - minVal)
	}
	return 0.5
}

func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// brailleGrid is a canvas of braille cells with a color per cell.
type brailleGrid struct {
	width, height int
	cells         [][]rune
	colors        [][]lipgloss.Color
}

func newBrailleGrid(width, height int) *brailleGrid {
	g := &brailleGrid{width: width, height: height}
	g.cells = make([][]rune, height)
	g.colors = make([][]lipgloss.Color, height)
	for i := range g.cells {
		g.cells[i] = make([]rune, width)
		g.colors[i] = make([]lipgloss.Color, width)
		for j := range g.cells[i] {
			g.cells[i][j] = brailleBase
		}
	}
	return g
}

// set lights the dot at pixel (x, y), with y = 0 at the bottom.
func (g *brailleGrid) set(x, y int, color lipgloss.Color) {
	if x < 0 || y < 0 || x >= g.width*2 || y >= g.height*4 {
		return
	}
	row := g.height - 1 - y/4
	col := x / 2
	g.cells[row][col] |= rune(1) << brailleDots[3-y%4][x%2]
	g.colors[row][col] = color
}

func (g *brailleGrid) lines() []string {
	out := make([]string, g.height)
	for r := range g.cells {
		var b strings.Builder
		for c, ch := range g.cells[r] {
			if ch == brailleBase {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(g.colors[r][c]).Render(string(ch)))
		}
		out[r] = b.String()
	}
	return out
}

// plotColumns maps each sample to a pixel column by its timestamp. When
// several samples land on one column the last one wins; values are never
// interpolated.
func plotColumns(times []time.Time, pixels int) []int {
	cols := make([]int, len(times))
	if len(times) == 0 {
		return cols
	}
	start, end := times[0], times[len(times)-1]
	span := end.Sub(start)
	for i, t := range times {
		if span <= 0 {
			cols[i] = pixels - 1
			continue
		}
		cols[i] = clampInt(int(float64(t.Sub(start))/float64(span)*float64(pixels-1)), pixels-1)
	}
	return cols
}

func renderLine(cfg Config, width, height int) string {
	minVal, maxVal := findRange(cfg.Datasets)
	maxLabel := formatValue(maxVal)
	minLabel := formatValue(minVal)
	gutter := max(lipgloss.Width(maxLabel), lipgloss.Width(minLabel)) + 1

	plotWidth := width - gutter - 1
	plotHeight := height
	if cfg.Options.Time != nil {
		plotHeight -= 2
	}
	if cfg.Options.Legend {
		plotHeight--
	}
	if plotWidth < 2 || plotHeight < 1 {
		return mutedStyle.Render("(chart too small)")
	}

	grid := newBrailleGrid(plotWidth, plotHeight)
	dotRows := plotHeight * 4
	cols := plotColumns(cfg.Times, plotWidth*2)

	for _, ds := range cfg.Datasets {
		ys := make(map[int]int, len(cols))
		for i, v := range ds.Data {
			if i >= len(cols) || math.IsNaN(v) {
				continue
			}
			ys[cols[i]] = clampInt(int(normalizeValue(v, minVal, maxVal)*float64(dotRows-1)), dotRows-1)
		}
		prevX, prevY := -2, 0
		for x := 0; x < plotWidth*2; x++ {
			y, ok := ys[x]
			if !ok {
				continue
			}
			// join adjacent columns with a vertical run so the line reads
			// as connected
			if x-prevX == 1 {
				lo, hi := min(prevY, y), max(prevY, y)
				for yy := lo; yy <= hi; yy++ {
					grid.set(x, yy, ds.BorderColor)
				}
			}
			grid.set(x, y, ds.BorderColor)
			prevX, prevY = x, y
		}
	}

	var lines []string
	for i, line := range grid.lines() {
		label := ""
		switch i {
		case 0:
			label = maxLabel
		case plotHeight - 1:
			label = minLabel
		}
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%*s", gutter-1, label))+" "+axisStyle.Render("│")+line)
	}

	if cfg.Options.Time != nil {
		tickLine, groupLine := timeAxisLines(*cfg.Options.Time, cfg.Times, plotWidth)
		pad := strings.Repeat(" ", gutter+1)
		lines = append(lines, pad+mutedStyle.Render(tickLine), pad+labelStyle.Render(groupLine))
	}

	if cfg.Options.Legend {
		lines = append(lines, legendLine(cfg.Datasets, width))
	}
	return strings.Join(lines, "\n")
}

// timeAxisLines lays out day ticks and month groups under a plot of the
// given width in cells. Labels that would overlap are skipped.
func timeAxisLines(axis TimeAxis, times []time.Time, width int) (string, string) {
	ticks, groups := axis.Ticks(times)
	return placeTicks(ticks, times, width), placeTicks(groups, times, width)
}

func placeTicks(ticks []Tick, times []time.Time, width int) string {
	line := []rune(strings.Repeat(" ", width))
	if len(times) == 0 {
		return string(line)
	}
	start, end := times[0], times[len(times)-1]
	span := end.Sub(start)

	next := 0
	for _, tick := range ticks {
		col := 0
		if span > 0 && tick.At.After(start) {
			col = int(float64(tick.At.Sub(start)) / float64(span) * float64(width-1))
		}
		label := []rune(tick.Label)
		if col < next || col+len(label) > width {
			continue
		}
		copy(line[col:], label)
		next = col + len(label) + 1
	}
	return string(line)
}

func legendLine(datasets []Dataset, width int) string {
	if len(datasets) == 0 {
		return mutedStyle.Render("no fields selected")
	}
	var parts []string
	used := 0
	for _, ds := range datasets {
		entry := lipgloss.NewStyle().Foreground(ds.BorderColor).Render("━") + " " + labelStyle.Render(ds.Label)
		w := lipgloss.Width(entry) + 2
		if used+w > width && used > 0 {
			break
		}
		parts = append(parts, entry)
		used += w
	}
	return strings.Join(parts, "  ")
}

func categoryColor(ds Dataset, i int) lipgloss.Color {
	if i < len(ds.BackgroundColors) {
		return ds.BackgroundColors[i]
	}
	return ColorFor(i)
}

// renderBars draws one horizontal bar per category, scaled to the largest
// value (or to 100 for percentage data).
func renderBars(cfg Config, width int) string {
	if len(cfg.Datasets) == 0 || len(cfg.Labels) == 0 {
		return mutedStyle.Render("no data")
	}
	ds := cfg.Datasets[0]

	labelWidth := 0
	valueWidth := 0
	for i, label := range cfg.Labels {
		labelWidth = max(labelWidth, lipgloss.Width(label))
		if i < len(ds.Data) {
			valueWidth = max(valueWidth, lipgloss.Width(formatValue(ds.Data[i])))
		}
	}
	barWidth := width - labelWidth - valueWidth - 3
	if barWidth < 1 {
		barWidth = 1
	}

	_, maxVal := findRange([]Dataset{ds})
	var lines []string
	for i, label := range cfg.Labels {
		v := 0.0
		if i < len(ds.Data) {
			v = ds.Data[i]
		}
		filled := 0
		if maxVal > 0 && !math.IsNaN(v) {
			filled = clampInt(int(math.Round(v/maxVal*float64(barWidth))), barWidth)
		}
		bar := lipgloss.NewStyle().Foreground(categoryColor(ds, i)).Render(strings.Repeat("█", filled)) +
			axisStyle.Render(strings.Repeat("░", barWidth-filled))
		lines = append(lines, fmt.Sprintf("%s %s %s",
			labelStyle.Render(padRight(label, labelWidth)),
			bar,
			valueStyle.Render(formatValue(v))))
	}
	return strings.Join(lines, "\n")
}

// renderDoughnut draws the categories as proportional segments of a single
// bar followed by a legend with each share.
func renderDoughnut(cfg Config, width int) string {
	if len(cfg.Datasets) == 0 || len(cfg.Labels) == 0 {
		return mutedStyle.Render("no data")
	}
	ds := cfg.Datasets[0]

	total := 0.0
	for _, v := range ds.Data {
		if v > 0 && !math.IsNaN(v) {
			total += v
		}
	}
	if total == 0 {
		return mutedStyle.Render("no data")
	}

	var bar strings.Builder
	used := 0
	for i, v := range ds.Data {
		if v <= 0 || math.IsNaN(v) {
			continue
		}
		n := int(math.Round(v / total * float64(width)))
		if i == len(ds.Data)-1 || used+n > width {
			n = width - used
		}
		bar.WriteString(lipgloss.NewStyle().Foreground(categoryColor(ds, i)).Render(strings.Repeat("█", n)))
		used += n
	}

	lines := []string{bar.String()}
	if cfg.Options.Legend {
		for i, label := range cfg.Labels {
			v := 0.0
			if i < len(ds.Data) {
				v = ds.Data[i]
			}
			lines = append(lines, fmt.Sprintf("%s %s %s %s",
				lipgloss.NewStyle().Foreground(categoryColor(ds, i)).Render("■"),
				labelStyle.Render(label),
				valueStyle.Render(formatValue(v)),
				mutedStyle.Render(fmt.Sprintf("(%.0f%%)", v/total*100))))
		}
	}
	return strings.Join(lines, "\n")
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	if math.Abs(v) >= 10000 {
		return humanize.SIWithDigits(v, 1, "")
	}
	return humanize.FtoaWithDigits(v, 2)
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
