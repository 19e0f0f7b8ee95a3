package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors as ANSI codes so they follow the terminal theme.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// GradientColors are cycled by the progress animation.
var GradientColors = []lipgloss.Color{"5", "4", "6", "2"}

// UsageColor picks a color for a percentage: green below 60, yellow below
// 80, red above.
func UsageColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// Styled helpers for one-shot command output.
func SuccessText(s string) string {
	return lipgloss.NewStyle().Foreground(ColorSuccess).Render(s)
}

func ErrorText(s string) string {
	return lipgloss.NewStyle().Foreground(ColorError).Render(s)
}

func WarningText(s string) string {
	return lipgloss.NewStyle().Foreground(ColorWarning).Render(s)
}

func MutedText(s string) string {
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(s)
}

func HeadingText(s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(ColorInfo).Render(s)
}
