package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	currentChartHeight = 6
	historyChartHeight = 12
)

// renderDashboard renders header, scrollable page body and footer.
func (m Model) renderDashboard() string {
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if len(m.alerts.items) > 0 {
		return m.renderAlert()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(m.renderLoading())
	case m.viewportReady:
		b.WriteString(m.viewport.View())
	default:
		b.WriteString(m.renderBody())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("whm")
	if m.report != nil && m.report.Demo {
		title += " " + DemoBadgeStyle.Render("DEMO")
	}

	var tabs []string
	for i, name := range Pages {
		if i == m.page {
			tabs = append(tabs, TabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, TabStyle.Render(name))
		}
	}
	return title + " " + strings.Join(tabs, "")
}

func (m Model) renderLoading() string {
	msg := m.spinner.View() + " " + LabelStyle.Render("Collecting a fresh report, this can take a few seconds...")
	if m.width <= 0 || m.height <= 3 {
		return msg
	}
	return lipgloss.Place(m.width, m.height-3, lipgloss.Center, lipgloss.Center, msg)
}

func (m Model) renderFooter() string {
	hints := "←/→ page  tab panel  h/d/w scope  1-9 fields  r refresh  ? help  q quit"
	if m.loading {
		hints = "q quit"
	}
	return FooterStyle.Render(hints)
}

// updateViewportContent re-renders the page body into the viewport.
func (m *Model) updateViewportContent() {
	if !m.viewportReady {
		return
	}
	m.viewport.SetContent(m.renderBody())
}

// renderBody renders every section of the current document.
func (m Model) renderBody() string {
	if m.doc == nil {
		if m.report == nil && !m.loading {
			return MutedStyle.Render("No report loaded. Press r to retry.")
		}
		return ""
	}

	width := m.width
	if width <= 0 {
		width = 100
	}

	focused := m.FocusedPanel()
	var parts []string
	for _, s := range m.doc.Sections() {
		isFocused := focused != nil && focused.Section() == s
		parts = append(parts, m.renderSection(s, width, isFocused))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderSection(s *Section, width int, focused bool) string {
	value := ""
	if s.Scope != nil {
		value = renderScope(s.Scope)
	}

	inner := width - 4
	var body []string

	if s.Text != "" {
		for _, line := range strings.Split(s.Text, "\n") {
			body = append(body, ValueStyle.Render(truncate(line, inner)))
		}
	}
	for _, w := range s.Warnings {
		body = append(body, WarningStyle.Render("⚠ "+truncate(w, inner-2)))
	}
	if s.Table != nil {
		body = append(body, strings.Split(renderTable(s.Table, inner), "\n")...)
	}
	if s.Current != nil && s.Current.Visible {
		if h := m.renderer.Canvas(s.Current.ID).Current(); h != nil {
			body = append(body, "")
			body = append(body, strings.Split(h.Render(inner, currentChartHeight), "\n")...)
		}
	}
	if s.Form != nil && len(s.Form.Boxes()) > 0 {
		body = append(body, "")
		body = append(body, strings.Split(renderForm(s.Form, inner), "\n")...)
	}
	if s.History != nil && s.History.Visible {
		if h := m.renderer.Canvas(s.History.ID).Current(); h != nil {
			body = append(body, "")
			body = append(body, strings.Split(h.Render(inner, historyChartHeight), "\n")...)
		}
	}
	if s.Empty != nil && s.Empty.Visible {
		body = append(body, "", MutedStyle.Render(s.Empty.Text))
	}

	lines := []string{SectionHeader(s.Title, value, width, focused)}
	for _, line := range body {
		lines = append(lines, SectionContentLine(line, width, focused))
	}
	lines = append(lines, SectionFooter(width, focused))
	return strings.Join(lines, "\n")
}

func renderScope(sel *ScopeSelect) string {
	var parts []string
	for _, sc := range sel.Options {
		if sc == sel.Selected {
			parts = append(parts, ScopeActiveStyle.Render("["+sc.Label()+"]"))
		} else {
			parts = append(parts, ScopeStyle.Render(sc.Label()))
		}
	}
	return strings.Join(parts, " ")
}

func renderForm(f *Form, width int) string {
	var parts []string
	used := 0
	for i, cb := range f.Boxes() {
		mark := "[ ]"
		style := MutedStyle
		if cb.Checked {
			mark = "[x]"
			style = ValueStyle
		}
		key := ""
		if i < 9 {
			key = fmt.Sprintf("%d ", i+1)
		}
		entry := LabelStyle.Render(key) + style.Render(mark+" "+cb.Name)
		w := lipgloss.Width(entry) + 2
		if used+w > width && used > 0 {
			parts = append(parts, "\n")
			used = 0
		}
		parts = append(parts, entry+"  ")
		used += w
	}
	return strings.TrimRight(strings.Join(parts, ""), " ")
}

func renderTable(t *Table, width int) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Foreground(ColorAccentDim).Bold(true).Padding(0, 1)
			}
			if col == 0 {
				return LabelStyle.Padding(0, 1)
			}
			return ValueStyle.Padding(0, 1)
		})
	out := tbl.String()
	if lipgloss.Width(out) > width {
		out = tbl.Width(width).String()
	}
	return out
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if width > len(r) {
		width = len(r)
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
