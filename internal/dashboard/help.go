package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

// helpBindings defines all keyboard shortcuts shown in the help overlay.
var helpBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "r", Desc: "Refresh the report"},
	{Key: "← / p", Desc: "Previous page"},
	{Key: "→ / n", Desc: "Next page"},
	{Key: "Tab", Desc: "Focus next panel"},
	{Key: "Shift+Tab", Desc: "Focus previous panel"},
	{Key: "h / d / w", Desc: "History in hours, days, weeks"},
	{Key: "[ / ]", Desc: "Previous / next scope"},
	{Key: "1-9", Desc: "Toggle a plotted field"},
	{Key: "↑ / ↓", Desc: "Scroll"},
	{Key: "?", Desc: "Toggle this help"},
}

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Width(14)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)
)

// renderHelpOverlay renders a centered help box with keyboard shortcuts.
func (m Model) renderHelpOverlay() string {
	var lines []string
	lines = append(lines, helpTitleStyle.Render("Keyboard Shortcuts"), "")
	for _, binding := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(binding.Key)+helpDescStyle.Render(binding.Desc))
	}
	lines = append(lines, "", LabelStyle.Render("Press ? to close"))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		helpBoxStyle.Render(strings.Join(lines, "\n")),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg),
	)
}

// renderAlert renders the oldest pending alert as a centered box.
func (m Model) renderAlert() string {
	msg := m.alerts.items[0]
	content := AlertTitleStyle.Render("Something went wrong") + "\n\n" +
		ValueStyle.Render(msg) + "\n\n" +
		MutedStyle.Render("Press any key to dismiss")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		AlertBoxStyle.Width(max(20, min(m.width-4, 70))).Render(content),
	)
}
