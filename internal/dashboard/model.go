package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/whm/internal/chart"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// Options configure a dashboard Model.
type Options struct {
	Store   *report.Store
	Fetcher history.Fetcher
	Router  *Router
	Page    string
	Scope   history.Scope
	Pages   PageOptions
	// Timeout bounds a report fetch. Zero means no limit beyond the client's.
	Timeout time.Duration
	Log     logger.Logger
}

// alertQueue collects alerts raised while handling a message. Shared by
// pointer so panels can raise alerts on a Model passed by value.
type alertQueue struct {
	items []string
}

func (q *alertQueue) Alert(msg string) {
	q.items = append(q.items, msg)
}

func (q *alertQueue) dismiss() {
	if len(q.items) > 0 {
		q.items = q.items[1:]
	}
}

// Model is the Bubble Tea model of the dashboard.
type Model struct {
	store   *report.Store
	fetcher history.Fetcher
	router  *Router
	pageOpt PageOptions
	scope   history.Scope
	timeout time.Duration
	log     logger.Logger

	report *report.Report
	page   int

	doc        *Document
	renderer   *chart.Renderer
	panels     []*Panel
	focused    int
	pageCancel context.CancelFunc

	alerts   *alertQueue
	loading  bool
	spinner  spinner.Model
	width    int
	height   int
	showHelp bool
	quitting bool

	viewport      viewport.Model
	viewportReady bool
}

// reportMsg carries the outcome of an ensure or refresh.
type reportMsg struct {
	report *report.Report
	reinit bool
	err    error
}

// NewModel creates a dashboard model.
func NewModel(opts Options) Model {
	if opts.Router == nil {
		opts.Router = NewRouter()
	}
	if opts.Log == nil {
		opts.Log = logger.Noop()
	}

	page := 0
	for i, name := range Pages {
		if name == opts.Page {
			page = i
		}
	}

	return Model{
		store:   opts.Store,
		fetcher: opts.Fetcher,
		router:  opts.Router,
		pageOpt: opts.Pages,
		scope:   opts.Scope,
		timeout: opts.Timeout,
		log:     opts.Log,
		page:    page,
		alerts:  &alertQueue{},
		loading: true,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
	}
}

// Init loads the report and starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.ensureCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}
		if m.viewportReady {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		footerHeight := 1
		viewportHeight := m.height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		if !m.viewportReady {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case reportMsg:
		m.loading = false
		if msg.err != nil {
			m.log.Warn("loading report: %s", errors.Summarize(msg.err))
			m.alerts.Alert(errors.Summarize(msg.err))
			m.updateViewportContent()
			return m, nil
		}
		m.report = msg.report
		m.log.Debug("report loaded (reinit=%t)", msg.reinit)
		return m, m.buildPage()

	case fieldOrderMsg:
		cmd := m.routeToPanel(msg.panel, msg)
		m.updateViewportContent()
		return m, cmd

	case historyMsg:
		cmd := m.routeToPanel(msg.panel, msg)
		m.updateViewportContent()
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m *Model) routeToPanel(target *Panel, msg tea.Msg) tea.Cmd {
	for _, p := range m.panels {
		if p == target {
			return p.Update(msg)
		}
	}
	return nil
}

func (m *Model) ensureCmd() tea.Cmd {
	store, timeout := m.store, m.timeout
	return func() tea.Msg {
		ctx, cancel := fetchContext(timeout)
		defer cancel()
		r, reinit, err := store.Ensure(ctx)
		return reportMsg{report: r, reinit: reinit, err: err}
	}
}

// refreshCmd drops into the loading state and fetches a new report. The
// page is rebuilt from scratch when it arrives.
func (m *Model) refreshCmd() tea.Cmd {
	m.loading = true
	m.showHelp = false
	store, timeout := m.store, m.timeout
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := fetchContext(timeout)
		defer cancel()
		r, err := store.Refresh(ctx)
		return reportMsg{report: r, reinit: true, err: err}
	})
}

func fetchContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func (m *Model) gotoPage(page int) tea.Cmd {
	m.page = page
	if m.report == nil {
		return nil
	}
	return m.buildPage()
}

// buildPage tears down the current page and renders the selected one from
// the live report.
func (m *Model) buildPage() tea.Cmd {
	m.closePage()

	ctx, cancel := context.WithCancel(context.Background())
	m.pageCancel = cancel
	m.doc = NewDocument(TargetContainer)
	m.renderer = chart.NewRenderer()
	m.focused = 0

	deps := PanelDeps{
		Fetcher:  m.fetcher,
		Renderer: m.renderer,
		Document: m.doc,
		Alerter:  m.alerts,
		Log:      m.log,
		Ctx:      ctx,
	}
	panels, err := m.router.Build(Pages[m.page], m.report, deps, m.pageOpt)
	if err != nil {
		m.alerts.Alert(errors.Summarize(err))
	}
	m.panels = panels

	var cmds []tea.Cmd
	for _, p := range m.panels {
		cmds = append(cmds, p.Start(m.scope))
	}
	m.updateViewportContent()
	if m.viewportReady {
		m.viewport.GotoTop()
	}
	return tea.Batch(cmds...)
}

func (m *Model) closePage() {
	for _, p := range m.panels {
		p.Close()
	}
	m.panels = nil
	if m.pageCancel != nil {
		m.pageCancel()
		m.pageCancel = nil
	}
}

// Page returns the current page name.
func (m Model) Page() string {
	return Pages[m.page]
}

// Panels returns the panels of the current page.
func (m Model) Panels() []*Panel {
	return m.panels
}

// FocusedPanel returns the panel receiving scope and field keys, or nil.
func (m Model) FocusedPanel() *Panel {
	if m.focused < 0 || m.focused >= len(m.panels) {
		return nil
	}
	return m.panels[m.focused]
}

// Document returns the view tree of the current page.
func (m Model) Document() *Document {
	return m.doc
}

// Renderer returns the chart renderer of the current page.
func (m Model) Renderer() *chart.Renderer {
	return m.renderer
}

// Loading reports whether a report fetch is in progress.
func (m Model) Loading() bool {
	return m.loading
}

// Alerts returns the pending alerts, oldest first.
func (m Model) Alerts() []string {
	return m.alerts.items
}
