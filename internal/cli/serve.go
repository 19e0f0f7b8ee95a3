package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/whm/internal/collect"
	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/server"
	"github.com/rileyhilliard/whm/internal/store"
	"github.com/rileyhilliard/whm/internal/ui"
)

var (
	serveListenFlag   string
	serveDatabaseFlag string
	serveNoRecordFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect reports, record history and serve them over HTTP",
	Long: `Run the whm backend.

Reports are collected on request from the configured source (this machine,
a host over SSH, or a node_exporter endpoint). A recorder samples CPU,
memory, sensors and disk usage on the backend.record intervals into the
sqlite database at backend.database.

Endpoints:
  GET  /getReport    full report
  POST /chart_data   history tables (data_set, scale, data_needed)
  GET  /metrics      Prometheus metrics of the backend itself

Log lines below --log-level (or WHM_LOG_LEVEL) are dropped; --debug turns
on everything.

Examples:
  whm serve
  whm serve --listen 127.0.0.1:8080
  whm serve --log-level warn
  WHM_BACKEND_SOURCE=ssh WHM_BACKEND_SSH_HOST=nas whm serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if serveListenFlag != "" {
			cfg.Backend.Listen = serveListenFlag
		}
		if serveDatabaseFlag != "" {
			cfg.Backend.Database = config.ExpandTilde(serveDatabaseFlag)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, !serveNoRecordFlag)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListenFlag, "listen", "", "address to listen on (default from backend.listen)")
	serveCmd.Flags().StringVar(&serveDatabaseFlag, "database", "", "sqlite file of history tables (default from backend.database)")
	serveCmd.Flags().BoolVar(&serveNoRecordFlag, "no-record", false, "serve existing history without recording new rows")
}

// reportSource collects full reports for /getReport and partial ones for
// the recorder.
type reportSource interface {
	server.ReportSource
	store.Source
}

// newReportSource builds the configured source. The returned func releases
// whatever connection the source holds.
func newReportSource(b config.BackendConfig) (reportSource, func(), error) {
	log := logger.NewEnvLogger("[collect]")
	switch b.Source {
	case config.SourceNodeExporter:
		return collect.NewNodeExporterSource(b.NodeExporterURL, b.SSHTimeout, log), func() {}, nil
	case config.SourceSSH:
		runner := collect.NewSSHRunner(b.SSHHost, b.SSHTimeout, log)
		c := collect.NewCollector(runner, log,
			collect.WithInterface(b.Interface), collect.WithDmesgLines(b.DmesgLines))
		return c, func() { runner.Close() }, nil
	case config.SourceLocal, "":
		c := collect.NewCollector(collect.NewLocalRunner(), log,
			collect.WithInterface(b.Interface), collect.WithDmesgLines(b.DmesgLines))
		return c, func() {}, nil
	default:
		return nil, nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown backend source %q", b.Source),
			"Use one of: local, ssh, node_exporter")
	}
}

func openHistory(b config.BackendConfig) (*store.Store, error) {
	var opts []store.Option
	for scope, units := range b.RetentionUnits() {
		opts = append(opts, store.WithRetention(scope, units))
	}
	return store.Open(b.Database, logger.NewEnvLogger("[store]"), opts...)
}

func serve(ctx context.Context, cfg *config.Config, record bool) error {
	log := logger.NewEnvLogger("[server]")

	src, closeSource, err := newReportSource(cfg.Backend)
	if err != nil {
		return err
	}
	defer closeSource()

	st, err := openHistory(cfg.Backend)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(src, st, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if record {
		rec := store.NewRecorder(st, src, cfg.Backend.RecordIntervals(), logger.NewEnvLogger("[recorder]"))
		rec.OnRecord = srv.ObserveRecord
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
	}

	fmt.Printf("%s Serving %s metrics on %s (history in %s)\n",
		ui.SuccessText(ui.SymbolSuccess), sourceLabel(cfg.Backend), cfg.Backend.Listen, cfg.Backend.Database)
	if record {
		for _, scope := range history.Scopes {
			if d := cfg.Backend.RecordIntervals()[scope]; d > 0 {
				fmt.Printf("  %s every %s\n", ui.MutedText(scope.String()), d)
			}
		}
	}

	err = srv.ListenAndServe(ctx, cfg.Backend.Listen)
	cancel()
	wg.Wait()
	return err
}

func sourceLabel(b config.BackendConfig) string {
	switch b.Source {
	case config.SourceSSH:
		return b.SSHHost
	case config.SourceNodeExporter:
		return b.NodeExporterURL
	default:
		return "local"
	}
}
