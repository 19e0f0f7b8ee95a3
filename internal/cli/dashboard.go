package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/whm/internal/api"
	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/dashboard"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// Dashboard flags, shared by `whm` and `whm dashboard`.
var (
	dashboardPageFlag  string
	dashboardScopeFlag string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the terminal dashboard",
	Long: `Open the full-screen dashboard for the host behind server.url.

The report is cached for the session; press r to fetch a fresh one and
'whm logout' to drop it.

Examples:
  whm dashboard
  whm dashboard --page storage
  whm dashboard --page cpu --scope days`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	addDashboardFlags(dashboardCmd)
}

func addDashboardFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dashboardPageFlag, "page", "", "first page: "+strings.Join(dashboard.Pages, ", "))
	cmd.Flags().StringVar(&dashboardScopeFlag, "scope", "", "history scope: hours, days or weeks")
}

func runDashboard(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := dashboardOptions(cfg, dashboardPageFlag, dashboardScopeFlag)
	if err != nil {
		return err
	}

	cacheDir, err := cfg.CacheDir()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't locate the cache directory", "Set cache.dir in .whm.yaml")
	}

	// The alt screen owns the terminal, so log lines go to a file.
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create the cache directory "+cacheDir, "Set cache.dir in .whm.yaml")
	}
	logFile, err := tea.LogToFile(filepath.Join(cacheDir, "dashboard.log"), "whm")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't open the dashboard log", "Check permissions on "+cacheDir)
	}
	defer logFile.Close()

	client, cache, err := backendClients(cfg)
	if err != nil {
		return err
	}
	opts.Store = report.NewStore(client, cache, logger.NewEnvLogger("[report]"))
	opts.Fetcher = history.NewBackendFetcher(client, logger.NewEnvLogger("[history]"))
	opts.Log = logger.NewEnvLogger("[panel]")

	p := tea.NewProgram(dashboard.NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"The dashboard stopped unexpectedly", "Check "+logFile.Name()+" for details")
	}
	return nil
}

// dashboardOptions resolves the page, scope and field order from config,
// with flags taking precedence.
func dashboardOptions(cfg *config.Config, pageFlag, scopeFlag string) (dashboard.Options, error) {
	page := cfg.Dashboard.Page
	if pageFlag != "" {
		page = pageFlag
	}
	if !isPage(page) {
		return dashboard.Options{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown page %q", page),
			"Use one of: "+strings.Join(dashboard.Pages, ", "))
	}

	scopeName := cfg.Dashboard.DefaultScope
	if scopeFlag != "" {
		scopeName = scopeFlag
	}
	scope, err := history.ParseScope(scopeName)
	if err != nil {
		return dashboard.Options{}, err
	}

	source, err := dashboard.ParseFieldSource(cfg.Dashboard.FieldOrder)
	if err != nil {
		return dashboard.Options{}, err
	}

	return dashboard.Options{
		Page:    page,
		Scope:   scope,
		Timeout: cfg.Server.Timeout,
		Pages: dashboard.PageOptions{
			FieldSource:  source,
			StaticFields: cfg.Dashboard.StaticFieldMap(),
		},
	}, nil
}

func isPage(name string) bool {
	for _, p := range dashboard.Pages {
		if p == name {
			return true
		}
	}
	return false
}

// backendClients builds the API client and the session cache shared by the
// client-side commands.
func backendClients(cfg *config.Config) (*api.Client, *report.FileCache, error) {
	client, err := api.NewClient(cfg.Server.URL, cfg.Server.Timeout)
	if err != nil {
		return nil, nil, err
	}
	cache, err := sessionCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cache, nil
}

func sessionCache(cfg *config.Config) (*report.FileCache, error) {
	if cfg.Cache.Dir == "" {
		return report.NewFileCache("")
	}
	return report.NewFileCache(filepath.Join(cfg.Cache.Dir, "session"))
}
