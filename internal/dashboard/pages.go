package dashboard

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/whm/internal/chart"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// Page names, in tab order.
const (
	PageHome      = "home"
	PageCPU       = "cpu"
	PageMemory    = "memory"
	PageSensors   = "sensors"
	PageStorage   = "storage"
	PageProcesses = "processes"
	PageLogs      = "logs"
	PageNetwork   = "network"
)

// Pages lists every page in tab order.
var Pages = []string{PageHome, PageCPU, PageMemory, PageSensors, PageStorage, PageProcesses, PageLogs, PageNetwork}

// PageOptions tune how chart pages build their panels.
type PageOptions struct {
	FieldSource FieldSource
	// StaticFields overrides the field order per prefix when FieldSource is
	// FieldsStatic.
	StaticFields map[string][]string
}

// PageBuilder fills a document for one page of a report.
type PageBuilder func(r *report.Report, deps PanelDeps, opts PageOptions) ([]*Panel, error)

// Router maps page names to builders.
type Router struct {
	pages map[string]PageBuilder
}

// NewRouter returns a router with every built-in page registered.
func NewRouter() *Router {
	return &Router{pages: map[string]PageBuilder{
		PageHome:      buildHome,
		PageCPU:       groupPage(report.KindCPU, cpuDescriptor),
		PageMemory:    groupPage(report.KindMemory, memoryDescriptor),
		PageSensors:   groupPage(report.KindSensors, sensorDescriptor),
		PageStorage:   buildStorage,
		PageProcesses: buildProcesses,
		PageLogs:      textPage("logs", "Kernel log", func(r *report.Report) string { return r.Dmesg }),
		PageNetwork:   textPage("network", "Network interfaces", func(r *report.Report) string { return r.Network }),
	}}
}

// Register adds or replaces a page.
func (rt *Router) Register(name string, b PageBuilder) {
	rt.pages[name] = b
}

// Build renders page into deps.Document and returns its panels.
func (rt *Router) Build(page string, r *report.Report, deps PanelDeps, opts PageOptions) ([]*Panel, error) {
	b, ok := rt.pages[page]
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown page %q", page),
			"Use one of: "+strings.Join(Pages, ", "))
	}
	if deps.Log == nil {
		deps.Log = logger.Noop()
	}
	return b(r, deps, opts)
}

func cpuDescriptor(g report.Group) Descriptor {
	return Descriptor{
		Headers:          []string{"Task", "Utilization"},
		DefaultUnchecked: []string{"idle"},
		ChartKind:        chart.Doughnut,
	}
}

func memoryDescriptor(g report.Group) Descriptor {
	return Descriptor{
		Headers:          []string{"Metric", "Value"},
		CurrentLabels:    []string{"used", "free"},
		DefaultUnchecked: []string{"total", "free", "utilization"},
		ChartKind:        chart.Doughnut,
	}
}

func sensorDescriptor(g report.Group) Descriptor {
	return Descriptor{
		Headers:       []string{"Metric", "Value"},
		CurrentLabels: []string{"temp1_input", "temp1_crit"},
		ChartKind:     chart.Bar,
	}
}

func storageDescriptor(g report.Group) Descriptor {
	return Descriptor{
		Headers:   []string{"Mount", "Use %"},
		ChartKind: chart.Bar,
	}
}

// groupPage builds one panel per group of kind.
func groupPage(kind report.Kind, describe func(report.Group) Descriptor) PageBuilder {
	return func(r *report.Report, deps PanelDeps, opts PageOptions) ([]*Panel, error) {
		groups := r.Groups(kind)
		if len(groups) == 0 {
			c, err := deps.Document.Container(TargetContainer)
			if err != nil {
				return nil, err
			}
			c.Append(&Section{ID: kind.String(), Title: kind.String(), Text: "Nothing reported for this host."})
			return nil, nil
		}
		return buildPanels(groups, describe, deps, opts)
	}
}

func buildPanels(groups []report.Group, describe func(report.Group) Descriptor, deps PanelDeps, opts PageOptions) ([]*Panel, error) {
	var panels []*Panel
	for _, g := range groups {
		desc := describe(g)
		desc.Prefix = g.Prefix
		desc.Title = g.Title
		desc.ContainerID = TargetContainer
		desc.FieldSource = opts.FieldSource
		if opts.FieldSource == FieldsStatic {
			if fields, ok := opts.StaticFields[g.Prefix]; ok {
				desc.Fields = fields
			} else {
				desc.FieldSource = FieldsFromReport
			}
		}

		p, err := NewPanel(desc, g.Values, deps)
		if err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	return panels, nil
}

func buildHome(r *report.Report, deps PanelDeps, _ PageOptions) ([]*Panel, error) {
	c, err := deps.Document.Container(TargetContainer)
	if err != nil {
		return nil, err
	}

	var lines []string
	if r.Demo {
		lines = append(lines, "Demo mode: sensors are not available on this host.")
	}
	lines = append(lines, "Uptime: "+orDash(r.Uptime), "OS:     "+orDash(r.OS))
	c.Append(&Section{ID: "home", Title: "Host", Text: strings.Join(lines, "\n")})

	summary := &Table{Headers: []string{"Section", "Groups"}}
	for _, kind := range []report.Kind{report.KindCPU, report.KindMemory, report.KindSensors, report.KindLogicalVolumes} {
		summary.Rows = append(summary.Rows, []string{kind.String(), fmt.Sprint(len(r.Groups(kind)))})
	}
	summary.Rows = append(summary.Rows,
		[]string{"drives", fmt.Sprint(len(r.Drives))},
		[]string{"processes", humanize.Comma(int64(len(r.Processes)))})
	c.Append(&Section{ID: "summary", Title: "Report", Table: summary})
	return nil, nil
}

// buildStorage lists drives with their sizes in gigabytes, charts those
// sizes and adds the logical volume usage panel. Drives whose size cannot
// be read are left off the chart and reported as warnings.
func buildStorage(r *report.Report, deps PanelDeps, opts PageOptions) ([]*Panel, error) {
	c, err := deps.Document.Container(TargetContainer)
	if err != nil {
		return nil, err
	}

	sizes, problems := r.DriveSizes()
	drives := &Section{
		ID:      "drives",
		Title:   "Drives",
		Table:   &Table{Headers: []string{"Drive", "Type", "Size (GB)", "Mount", "SMART"}},
		Current: &CanvasElement{ID: "drives_current", Visible: len(sizes) > 0},
	}
	var addRows func(ds report.Drives, depth int)
	addRows = func(ds report.Drives, depth int) {
		for _, d := range ds {
			size := "?"
			if gb, err := report.ToGigabytes(d.Size); err == nil {
				size = humanize.FtoaWithDigits(gb, 2)
			}
			name := strings.Repeat("  ", depth) + d.Name
			drives.Table.Rows = append(drives.Table.Rows, []string{name, d.Type, size, orDash(d.Mount), orDash(d.SmartHealth)})
			addRows(d.Children, depth+1)
		}
	}
	addRows(r.Drives, 0)
	for _, p := range problems {
		drives.Warnings = append(drives.Warnings, fmt.Sprintf("Data integrity: %s: %s", p.Drive, errors.Summarize(p.Err)))
		deps.Log.Warn("drive %s: %v", p.Drive, errors.Summarize(p.Err))
	}
	c.Append(drives)
	deps.Renderer.DrawCurrent(drives.Current.ID, chart.Bar, sizes.Names(), sizes.Numbers())

	return buildPanels(r.Groups(report.KindLogicalVolumes), storageDescriptor, deps, opts)
}

func buildProcesses(r *report.Report, deps PanelDeps, _ PageOptions) ([]*Panel, error) {
	c, err := deps.Document.Container(TargetContainer)
	if err != nil {
		return nil, err
	}
	t := &Table{Headers: []string{"PID", "TTY", "Time", "Command"}}
	for _, p := range r.ProcessesByPID() {
		t.Rows = append(t.Rows, []string{p.PID, p.TTY, p.Time, p.Cmd})
	}
	c.Append(&Section{ID: "processes", Title: "Processes", Table: t})
	return nil, nil
}

func textPage(id, title string, body func(*report.Report) string) PageBuilder {
	return func(r *report.Report, deps PanelDeps, _ PageOptions) ([]*Panel, error) {
		c, err := deps.Document.Container(TargetContainer)
		if err != nil {
			return nil, err
		}
		c.Append(&Section{ID: id, Title: title, Text: orDash(strings.TrimRight(body(r), "\n"))})
		return nil, nil
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
