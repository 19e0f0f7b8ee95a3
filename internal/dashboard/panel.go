package dashboard

import (
	"context"
	stderrors "errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/whm/internal/chart"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// PanelState is the lifecycle state of a MetricsPanel.
type PanelState int

const (
	StateInitializing PanelState = iota
	StateAwaitingFieldOrder
	StateReady
	StateFetchingHistory
	StateEmptyAtScope
)

// String returns a human-readable state name.
func (s PanelState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingFieldOrder:
		return "awaiting field order"
	case StateReady:
		return "ready"
	case StateFetchingHistory:
		return "fetching history"
	case StateEmptyAtScope:
		return "empty at scope"
	default:
		return "unknown"
	}
}

// FieldSource says where a panel gets its field order from.
type FieldSource int

const (
	// FieldsFromBackend asks the backend for the table layout of the prefix.
	FieldsFromBackend FieldSource = iota
	// FieldsFromReport uses the order the group's values arrived in.
	FieldsFromReport
	// FieldsStatic uses Descriptor.Fields.
	FieldsStatic
)

// ParseFieldSource maps a config value to a FieldSource.
func ParseFieldSource(s string) (FieldSource, error) {
	switch s {
	case "", "backend":
		return FieldsFromBackend, nil
	case "report":
		return FieldsFromReport, nil
	case "static":
		return FieldsStatic, nil
	default:
		return FieldsFromBackend, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown field order source %q", s),
			"Use one of: backend, report, static")
	}
}

// Descriptor identifies one panel instance.
type Descriptor struct {
	Prefix  string
	Title   string
	Headers []string
	// CurrentLabels are the fields shown on the current-value chart. Nil
	// means all of them.
	CurrentLabels    []string
	DefaultUnchecked []string
	ContainerID      string
	ChartKind        chart.Kind
	FieldSource      FieldSource
	Fields           []string
}

// Alerter shows a user-visible alert.
type Alerter interface {
	Alert(msg string)
}

// PanelDeps are the collaborators shared by every panel of a page.
type PanelDeps struct {
	Fetcher  history.Fetcher
	Renderer *chart.Renderer
	Document *Document
	Alerter  Alerter
	Log      logger.Logger
	// Ctx bounds every request of the page. Cancelling it aborts them all.
	Ctx context.Context
}

// fieldOrderMsg carries the backend field order of a panel.
type fieldOrderMsg struct {
	panel  *Panel
	prefix string
	fields []string
	err    error
}

// historyMsg carries one history response. scope and seq identify the
// request so stale responses can be dropped.
type historyMsg struct {
	panel  *Panel
	prefix string
	scope  history.Scope
	seq    uint64
	series history.Series
	err    error
}

// Panel is a MetricsPanel: current-value table and chart of one metric group
// plus its history chart with a scope selector and field checkboxes.
type Panel struct {
	desc   Descriptor
	values report.Values
	deps   PanelDeps

	section  *Section
	selector *SeriesSelector

	state  PanelState
	scope  history.Scope
	seq    uint64
	cancel context.CancelFunc

	fields       []string
	series       history.Series
	current      *chart.Handle
	historyChart *chart.Handle
}

// NewPanel builds the panel's section in its container and draws the
// current values. No request is made until Start.
func NewPanel(desc Descriptor, values report.Values, deps PanelDeps) (*Panel, error) {
	if deps.Log == nil {
		deps.Log = logger.Noop()
	}
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if desc.ContainerID == "" {
		desc.ContainerID = TargetContainer
	}
	container, err := deps.Document.Container(desc.ContainerID)
	if err != nil {
		return nil, err
	}

	p := &Panel{desc: desc, values: values, deps: deps, state: StateInitializing}

	p.section = &Section{
		ID:      desc.Prefix,
		Title:   desc.Title,
		Table:   currentTable(desc.Headers, values),
		Current: &CanvasElement{ID: desc.Prefix + "_current", Visible: true},
		Scope:   &ScopeSelect{Options: history.Scopes},
		Form:    &Form{ID: desc.Prefix + "_form"},
		History: &CanvasElement{ID: desc.Prefix + "_history"},
		Empty:   &Notice{Text: "No data recorded at this scope yet."},
	}
	container.Append(p.section)
	p.selector = NewSeriesSelector(p.section.Form)

	labels := values.Names()
	if desc.CurrentLabels != nil {
		labels = desc.CurrentLabels
	}
	picked := values.Pick(labels)
	p.current = deps.Renderer.DrawCurrent(p.section.Current.ID, desc.ChartKind, picked.Names(), picked.Numbers())

	return p, nil
}

func currentTable(headers []string, values report.Values) *Table {
	t := &Table{Headers: headers}
	for _, f := range values {
		t.Rows = append(t.Rows, []string{f.Name, humanize.FtoaWithDigits(f.Value, 2)})
	}
	return t
}

// Start resolves the field order and requests history at scope.
func (p *Panel) Start(scope history.Scope) tea.Cmd {
	p.scope = scope
	p.section.Scope.Selected = scope

	switch p.desc.FieldSource {
	case FieldsStatic:
		return p.fieldsResolved(p.desc.Fields)
	case FieldsFromReport:
		return p.fieldsResolved(p.values.Names())
	}

	p.state = StateAwaitingFieldOrder
	ctx, prefix, fetcher := p.deps.Ctx, p.desc.Prefix, p.deps.Fetcher
	return func() tea.Msg {
		fields, err := fetcher.FetchFieldOrder(ctx, prefix)
		return fieldOrderMsg{panel: p, prefix: prefix, fields: fields, err: err}
	}
}

func (p *Panel) fieldsResolved(fields []string) tea.Cmd {
	p.fields = append([]string(nil), fields...)
	p.selector.Render(p.fields, p.desc.DefaultUnchecked)
	p.state = StateReady
	return p.SetScope(p.scope)
}

// SetScope switches the history chart to scope. The previous request, if
// any, is cancelled and its response will be ignored.
func (p *Panel) SetScope(scope history.Scope) tea.Cmd {
	p.scope = scope
	p.section.Scope.Selected = scope
	if p.state == StateInitializing || p.state == StateAwaitingFieldOrder {
		return nil
	}

	p.section.Form.Off()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	p.state = StateFetchingHistory

	ctx, cancel := context.WithCancel(p.deps.Ctx)
	p.cancel = cancel

	seq, prefix, fetcher := p.seq, p.desc.Prefix, p.deps.Fetcher
	p.deps.Log.Debug("%s: fetching %s history (seq %d)", prefix, scope, seq)
	return func() tea.Msg {
		series, err := fetcher.FetchHistory(ctx, prefix, scope)
		return historyMsg{panel: p, prefix: prefix, scope: scope, seq: seq, series: series, err: err}
	}
}

// Update applies a response addressed to this panel.
func (p *Panel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case fieldOrderMsg:
		if msg.panel != p || p.state != StateAwaitingFieldOrder {
			return nil
		}
		return p.handleFieldOrder(msg)
	case historyMsg:
		if msg.panel != p {
			return nil
		}
		p.handleHistory(msg)
	}
	return nil
}

func (p *Panel) handleFieldOrder(msg fieldOrderMsg) tea.Cmd {
	fields := msg.fields
	if msg.err != nil {
		if isCancelled(msg.err) {
			return nil
		}
		p.deps.Alerter.Alert(fmt.Sprintf("%s: %s", p.desc.Title, errors.Summarize(msg.err)))
		fields = nil
	}
	if len(fields) == 0 {
		p.deps.Log.Debug("%s: no backend field order, using report order", p.desc.Prefix)
		fields = p.values.Names()
	}
	return p.fieldsResolved(fields)
}

func (p *Panel) handleHistory(msg historyMsg) {
	if msg.scope != p.scope || msg.seq != p.seq {
		p.deps.Log.Debug("%s: dropping stale %s response (seq %d, current %d)", p.desc.Prefix, msg.scope, msg.seq, p.seq)
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	if msg.err != nil {
		p.restoreState()
		if isCancelled(msg.err) {
			return
		}
		p.deps.Alerter.Alert(fmt.Sprintf("%s history: %s", p.desc.Title, errors.Summarize(msg.err)))
		return
	}

	if msg.series.Empty() {
		p.series = msg.series
		p.section.History.Visible = false
		p.section.Empty.Visible = true
		p.section.Form.Off()
		p.state = StateEmptyAtScope
		return
	}

	labeled, err := msg.series.WithFields(p.fields)
	if err != nil {
		p.restoreState()
		p.deps.Alerter.Alert(fmt.Sprintf("%s history: %s", p.desc.Title, errors.Summarize(err)))
		return
	}

	p.series = labeled
	p.section.History.Visible = true
	p.section.Empty.Visible = false
	p.section.Form.Off()
	p.section.Form.OnChange(p.redraw)
	p.section.Form.Trigger()
	p.state = StateReady
}

// restoreState leaves the panel showing whatever it showed before the
// failed request.
func (p *Panel) restoreState() {
	if p.section.Empty.Visible {
		p.state = StateEmptyAtScope
		return
	}
	p.state = StateReady
	if p.historyChart != nil {
		p.section.Form.Off()
		p.section.Form.OnChange(p.redraw)
	}
}

// redraw projects the cached series onto the checked fields.
func (p *Panel) redraw() {
	p.historyChart = p.deps.Renderer.DrawHistory(p.section.History.ID, p.selector.CurrentSelection(), p.series, p.historyChart)
}

// ToggleField flips checkbox i. It never issues a request.
func (p *Panel) ToggleField(i int) bool {
	return p.section.Form.Toggle(i)
}

// Close cancels the in-flight request and disposes the charts. Responses
// still in flight are dropped.
func (p *Panel) Close() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.seq++
	p.section.Form.Off()
	p.historyChart.Destroy()
	p.current.Destroy()
}

// Prefix returns the panel prefix.
func (p *Panel) Prefix() string { return p.desc.Prefix }

// Title returns the panel title.
func (p *Panel) Title() string { return p.desc.Title }

// State returns the lifecycle state.
func (p *Panel) State() PanelState { return p.state }

// Scope returns the selected scope.
func (p *Panel) Scope() history.Scope { return p.scope }

// Section returns the panel's view tree section.
func (p *Panel) Section() *Section { return p.section }

// Fields returns the resolved field order.
func (p *Panel) Fields() []string { return p.fields }

// Selection returns the checked fields.
func (p *Panel) Selection() []string { return p.selector.CurrentSelection() }

// HistoryChart returns the live history chart, or nil.
func (p *Panel) HistoryChart() *chart.Handle { return p.historyChart }

// CurrentChart returns the current-value chart.
func (p *Panel) CurrentChart() *chart.Handle { return p.current }

func isCancelled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}
