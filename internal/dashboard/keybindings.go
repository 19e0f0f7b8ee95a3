package dashboard

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/whm/internal/history"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyNextPage    = "right"
	KeyNextPageAlt = "n"
	KeyPrevPage    = "left"
	KeyPrevPageAlt = "p"
	KeyNextPanel   = "tab"
	KeyPrevPanel   = "shift+tab"
	KeyScopeHours  = "h"
	KeyScopeDays   = "d"
	KeyScopeWeeks  = "w"
	KeyScopeNext   = "]"
	KeyScopePrev   = "["
	KeyDismiss     = "enter"
	KeyDismissAlt  = "esc"
	KeyToggleHelp  = "?"
)

// HandleKeyMsg processes keyboard input and returns the command to run.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyQuit || key == KeyQuitAlt {
		m.quitting = true
		m.closePage()
		return true, tea.Quit
	}

	// Navigation is disabled while a report is loading.
	if m.loading {
		return true, nil
	}

	// An alert is modal: the next key dismisses it.
	if len(m.alerts.items) > 0 {
		m.alerts.dismiss()
		return true, nil
	}

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyDismissAlt {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyRefresh:
		return true, m.refreshCmd()

	case KeyNextPage, KeyNextPageAlt:
		return true, m.gotoPage((m.page + 1) % len(Pages))

	case KeyPrevPage, KeyPrevPageAlt:
		return true, m.gotoPage((m.page + len(Pages) - 1) % len(Pages))

	case KeyNextPanel:
		if len(m.panels) > 0 {
			m.focused = (m.focused + 1) % len(m.panels)
			m.updateViewportContent()
		}
		return true, nil

	case KeyPrevPanel:
		if len(m.panels) > 0 {
			m.focused = (m.focused + len(m.panels) - 1) % len(m.panels)
			m.updateViewportContent()
		}
		return true, nil

	case KeyScopeHours:
		return true, m.setScope(history.Hours)
	case KeyScopeDays:
		return true, m.setScope(history.Days)
	case KeyScopeWeeks:
		return true, m.setScope(history.Weeks)

	case KeyScopeNext:
		if p := m.FocusedPanel(); p != nil {
			return true, m.setScope(p.Scope().Next())
		}
		return true, nil
	case KeyScopePrev:
		if p := m.FocusedPanel(); p != nil {
			return true, m.setScope(p.Scope().Prev())
		}
		return true, nil
	}

	// 1-9 toggle the matching field of the focused panel.
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		if p := m.FocusedPanel(); p != nil && p.ToggleField(n-1) {
			m.updateViewportContent()
		}
		return true, nil
	}

	return false, nil
}

func (m *Model) setScope(scope history.Scope) tea.Cmd {
	p := m.FocusedPanel()
	if p == nil {
		return nil
	}
	cmd := p.SetScope(scope)
	m.updateViewportContent()
	return cmd
}
