package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rileyhilliard/whm/pkg/sshutil"
)

type hostItem struct {
	host sshutil.HostEntry
}

func (i hostItem) Title() string       { return i.host.Alias }
func (i hostItem) Description() string { return i.host.Description() }

func (i hostItem) FilterValue() string {
	values := []string{i.host.Alias}
	if i.host.Hostname != "" {
		values = append(values, i.host.Hostname)
	}
	if i.host.User != "" {
		values = append(values, i.host.User)
	}
	return strings.Join(values, " ")
}

type hostPickerKeyMap struct {
	Enter  key.Binding
	Manual key.Binding
	Quit   key.Binding
}

var hostPickerKeys = hostPickerKeyMap{
	Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manual entry")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "cancel")),
}

// HostPickerModel is a Bubble Tea model for choosing an SSH config alias.
type HostPickerModel struct {
	list        list.Model
	selected    *sshutil.HostEntry
	manualEntry bool
	quitting    bool
}

// NewHostPickerModel lists hosts for selection.
func NewHostPickerModel(hosts []sshutil.HostEntry) HostPickerModel {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = hostItem{host: h}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Select the host to collect metrics from"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{hostPickerKeys.Manual}
	}

	return HostPickerModel{list: l}
}

// Init implements tea.Model.
func (m HostPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, hostPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				m.selected = &item.host
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, hostPickerKeys.Manual):
			m.manualEntry = true
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, hostPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View() + MutedText("\n  Press 'm' to enter a host manually")
}

// Selected returns the chosen host, or nil.
func (m HostPickerModel) Selected() *sshutil.HostEntry {
	return m.selected
}

// ManualEntry reports whether the user asked to type a host instead.
func (m HostPickerModel) ManualEntry() bool {
	return m.manualEntry
}

// PickHost shows the picker on the terminal.
// Returns the chosen host, or nil with cancelled=false when the user wants
// manual entry (or there is nothing to pick), or nil with cancelled=true.
func PickHost(hosts []sshutil.HostEntry) (*sshutil.HostEntry, bool, error) {
	return PickHostWithIO(hosts, os.Stdout, os.Stdin)
}

// PickHostWithIO is PickHost with explicit I/O.
func PickHostWithIO(hosts []sshutil.HostEntry, output io.Writer, input io.Reader) (*sshutil.HostEntry, bool, error) {
	if len(hosts) == 0 {
		return nil, false, nil
	}

	p := tea.NewProgram(NewHostPickerModel(hosts), tea.WithOutput(output), tea.WithInput(input))
	final, err := p.Run()
	if err != nil {
		return nil, false, fmt.Errorf("host picker: %w", err)
	}

	m, ok := final.(HostPickerModel)
	if !ok {
		return nil, true, nil
	}
	if m.ManualEntry() {
		return nil, false, nil
	}
	if m.Selected() == nil {
		return nil, true, nil
	}
	return m.Selected(), false, nil
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
