package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/whm/internal/chart"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/store"
	"github.com/rileyhilliard/whm/internal/ui"
	"github.com/rileyhilliard/whm/internal/util"
)

var (
	historyPrefixFlag string
	historyScopeFlag  string
	historyFieldsFlag []string
	historyHeightFlag int
	historyPNGFlag    string
)

// Size of exported chart images, in pixels.
const (
	pngWidth  = 1200
	pngHeight = 600
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the history chart of one metric group",
	Long: `Print a history chart of one recorded metric group.

The prefix names the group's table: cpu, mem_<pool> (mem_Mem, mem_Swap),
sens_<chip> or sto. Without --prefix or --scope you are asked for them.

Examples:
  whm history --prefix cpu
  whm history --prefix mem_Mem --scope days --fields used,free
  whm history --prefix sto --scope weeks
  whm history --prefix cpu --scope days --png cpu.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, scopeName := historyPrefixFlag, historyScopeFlag
		if prefix == "" || scopeName == "" {
			if !ui.IsTerminal(os.Stdin) {
				return errors.New(errors.ErrConfig, "--prefix and --scope are required when not on a terminal",
					"Example: whm history --prefix cpu --scope hours")
			}
			var err error
			prefix, scopeName, err = promptHistory(prefix, scopeName)
			if err != nil {
				return err
			}
		}
		scope, err := history.ParseScope(scopeName)
		if err != nil {
			return err
		}
		return runHistory(cmd.Context(), os.Stdout, prefix, scope, historyFieldsFlag, terminalWidth(), historyHeightFlag)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyPrefixFlag, "prefix", "", "metric group: cpu, mem_<pool>, sens_<chip> or sto")
	historyCmd.Flags().StringVar(&historyScopeFlag, "scope", "", "hours, days or weeks")
	historyCmd.Flags().StringSliceVar(&historyFieldsFlag, "fields", nil, "fields to plot (default: all)")
	historyCmd.Flags().IntVar(&historyHeightFlag, "height", 12, "chart height in rows")
	historyCmd.Flags().StringVar(&historyPNGFlag, "png", "", "write the chart to this PNG file instead of the terminal")
}

// promptHistory asks for whatever of prefix and scope is missing.
func promptHistory(prefix, scope string) (string, string, error) {
	if scope == "" {
		scope = history.Hours.String()
	}

	var fields []huh.Field
	if historyPrefixFlag == "" {
		fields = append(fields, huh.NewInput().
			Title("Metric group").
			Description("cpu, mem_<pool>, sens_<chip> or sto").
			Placeholder("cpu").
			Value(&prefix).
			Validate(func(s string) error {
				if !store.ValidIdentifier(strings.TrimSpace(s)) {
					return fmt.Errorf("letters, digits and . _ @ - only")
				}
				return nil
			}))
	}
	if historyScopeFlag == "" {
		options := make([]huh.Option[string], 0, len(history.Scopes))
		for _, s := range history.Scopes {
			options = append(options, huh.NewOption(s.Label(), s.String()))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Scope").
			Options(options...).
			Value(&scope))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", "", errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass --prefix and --scope instead")
	}
	return strings.TrimSpace(prefix), scope, nil
}

func runHistory(ctx context.Context, w io.Writer, prefix string, scope history.Scope, selected []string, width, height int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	client, _, err := backendClients(cfg)
	if err != nil {
		return err
	}
	fetcher := history.NewBackendFetcher(client, logger.NewEnvLogger("[history]"))

	if cfg.Server.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.Timeout)
		defer cancel()
	}

	series, err := fetcher.FetchHistory(ctx, prefix, scope)
	if err != nil {
		return err
	}
	// One-shot output has no checkboxes to keep, so the scope's own columns
	// are the field order when the backend sends them.
	fields := series.Columns
	if fields == nil {
		if fields, err = fetcher.FetchFieldOrder(ctx, prefix); err != nil {
			return err
		}
	}
	if series.Empty() || len(fields) == 0 {
		fmt.Fprintf(w, "%s No %s data recorded for %s yet.\n", ui.MutedText(ui.SymbolPending), scope, prefix)
		return nil
	}

	labeled, err := series.WithFields(fields)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		selected = fields
	}
	for _, name := range selected {
		if !contains(fields, name) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s has no field %q", prefix, name),
				"Fields: "+util.JoinOrDefault(fields, "(none)"))
		}
	}

	h := chart.NewRenderer().DrawHistory(prefix+"_history", selected, labeled, nil)
	defer h.Destroy()

	if historyPNGFlag != "" {
		return writePNG(w, h, historyPNGFlag)
	}

	fmt.Fprintf(w, "%s %s\n", ui.HeadingText(prefix), ui.MutedText(scope.Label()))
	fmt.Fprintln(w, h.Render(width, height))
	return nil
}

func writePNG(w io.Writer, h *chart.Handle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create "+path, "Check the directory exists and is writable")
	}
	if err := h.RenderPNG(f, pngWidth, pngHeight); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't write "+path, "")
	}
	fmt.Fprintf(w, "%s Wrote %s\n", ui.SuccessText(ui.SymbolSuccess), path)
	return nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	return 80
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
