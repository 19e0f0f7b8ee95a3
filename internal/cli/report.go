package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
	"github.com/rileyhilliard/whm/internal/ui"
	"github.com/rileyhilliard/whm/internal/util"
)

var (
	reportJSONFlag    bool
	reportLocalFlag   bool
	reportRefreshFlag bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print one metrics report",
	Long: `Print the current report of the host behind server.url.

The session's cached report is used when there is one; --refresh fetches a
new one. --local skips the backend and collects from the configured
backend.source directly. Output is JSON when --json is set or stdout is not
a terminal.

Examples:
  whm report
  whm report --refresh
  whm report --local --json | jq .cpu`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON := reportJSONFlag || !ui.IsTerminal(os.Stdout)
		err := runReport(cmd.Context(), os.Stdout, asJSON)
		if err != nil && asJSON {
			if werr := WriteJSONFromError(os.Stdout, err); werr != nil {
				return werr
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSONFlag, "json", false, "print JSON")
	reportCmd.Flags().BoolVar(&reportLocalFlag, "local", false, "collect directly instead of asking the backend")
	reportCmd.Flags().BoolVar(&reportRefreshFlag, "refresh", false, "ignore the cached report")
}

func runReport(ctx context.Context, w io.Writer, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	var progress io.Writer
	if !asJSON && ui.IsTerminal(os.Stderr) {
		progress = os.Stderr
	}

	var rep *report.Report
	err = ui.WithProgress(progress, "Fetching report", func() error {
		var ferr error
		rep, ferr = fetchReport(ctx, func(ctx context.Context) (*report.Report, error) {
			if reportLocalFlag {
				src, closeSource, err := newReportSource(cfg.Backend)
				if err != nil {
					return nil, err
				}
				defer closeSource()
				return src.FetchReport(ctx)
			}

			client, cache, err := backendClients(cfg)
			if err != nil {
				return nil, err
			}
			st := report.NewStore(client, cache, logger.NewEnvLogger("[report]"))
			if reportRefreshFlag {
				return st.Refresh(ctx)
			}
			r, _, err := st.Ensure(ctx)
			return r, err
		})
		return ferr
	})
	if err != nil {
		return err
	}

	if asJSON {
		return WriteJSONSuccess(w, rep)
	}
	_, err = io.WriteString(w, renderSummary(rep))
	return err
}

func fetchReport(ctx context.Context, fetch func(context.Context) (*report.Report, error)) (*report.Report, error) {
	rep, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, errors.New(errors.ErrData, "The backend answered without a report",
			"Check the backend log")
	}
	return rep, nil
}

// renderSummary formats a report for a terminal.
func renderSummary(r *report.Report) string {
	var b strings.Builder

	if r.Demo {
		fmt.Fprintf(&b, "%s %s\n\n", ui.WarningText(ui.SymbolWarning),
			ui.WarningText("Demo mode: sensors, disks and logs are sample data"))
	}
	writeKV(&b, "OS", util.OrDefault(r.OS, "-"))
	writeKV(&b, "Uptime", util.OrDefault(r.Uptime, "-"))

	if len(r.CPU) > 0 {
		b.WriteString("\n" + ui.HeadingText("CPU") + "\n")
		for _, f := range r.CPU {
			writeKV(&b, f.Name, percent(f.Value))
		}
	}

	if len(r.Memory) > 0 {
		b.WriteString("\n" + ui.HeadingText("Memory") + "\n")
		for _, pool := range r.Memory {
			total, _ := pool.Values.Get("total")
			used, _ := pool.Values.Get("used")
			utilization, _ := pool.Values.Get("utilization")
			writeKV(&b, pool.Name, fmt.Sprintf("%s of %s (%s)",
				kibibytes(used), kibibytes(total), usage(utilization)))
		}
	}

	if len(r.Sensors) > 0 {
		b.WriteString("\n" + ui.HeadingText("Sensors") + "\n")
		for _, dev := range r.Sensors {
			var parts []string
			for _, f := range dev.Values {
				if strings.HasSuffix(f.Name, "_input") {
					parts = append(parts, fmt.Sprintf("%s %s", strings.TrimSuffix(f.Name, "_input"),
						humanize.FtoaWithDigits(f.Value, 1)))
				}
			}
			writeKV(&b, dev.Name, util.JoinOrDefault(parts, "-"))
		}
	}

	if rows := driveRows(r.Drives, ""); len(rows) > 0 {
		b.WriteString("\n" + ui.HeadingText("Drives") + "\n")
		b.WriteString(ui.RenderSimpleTable(
			[]ui.TableColumn{{Title: "Device"}, {Title: "Size"}, {Title: "Type"}, {Title: "Mount"}, {Title: "SMART"}},
			rows) + "\n")
	}

	if len(r.LogicalVolumes) > 0 {
		b.WriteString("\n" + ui.HeadingText("Filesystems") + "\n")
		rows := make([][]string, 0, len(r.LogicalVolumes))
		for _, lv := range r.LogicalVolumes {
			rows = append(rows, []string{lv.MountPoint, lv.Filesystem, lv.UsePercent})
		}
		b.WriteString(ui.RenderSimpleTable(
			[]ui.TableColumn{{Title: "Mount"}, {Title: "Filesystem"}, {Title: "Use %"}}, rows) + "\n")
	}

	if len(r.Processes) > 0 {
		fmt.Fprintf(&b, "\n%s %s\n", ui.HeadingText("Processes"), humanize.Comma(int64(len(r.Processes))))
	}
	return b.String()
}

// driveRows flattens the drive tree, indenting partitions under their disk.
func driveRows(drives report.Drives, indent string) [][]string {
	var rows [][]string
	for _, d := range drives {
		size := d.Size
		if gb, err := report.ToGigabytes(d.Size); err == nil {
			size = humanize.IBytes(uint64(gb * (1 << 30)))
		}
		health := d.SmartHealth
		switch {
		case health == "":
			health = "-"
		case strings.EqualFold(health, "PASSED"):
			health = ui.SuccessText(ui.SymbolSuccess + " " + health)
		default:
			health = ui.ErrorText(ui.SymbolFail + " " + health)
		}
		rows = append(rows, []string{indent + d.Name, size, d.Type, util.OrDefault(d.Mount, "-"), health})
		rows = append(rows, driveRows(d.Children, indent+"  ")...)
	}
	return rows
}

func writeKV(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "  %s %s\n", ui.MutedText(fmt.Sprintf("%-14s", key)), value)
}

func kibibytes(v float64) string {
	if v <= 0 || math.IsNaN(v) {
		return "0 B"
	}
	return humanize.IBytes(uint64(v) * 1024)
}

func percent(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "%"
}

func usage(v float64) string {
	return lipgloss.NewStyle().Foreground(ui.UsageColor(v)).Render(percent(v))
}
