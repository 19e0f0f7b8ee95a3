package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
)

// Global flags
var (
	cfgFile      string
	noColor      bool
	debugFlag    bool
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "whm",
	Short: "Web host metrics: a terminal dashboard for one machine's health",
	Long: `whm shows CPU, memory, sensors, storage, processes, logs and network
information for one host, with hourly, daily and weekly history charts.

Run 'whm serve' on the host to collect and record metrics, then 'whm' (or
'whm dashboard') anywhere to browse them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || os.Getenv("NO_COLOR") != "" {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
		if debugFlag {
			os.Setenv(logger.DebugEnv, "1")
		}
		return applyLogLevel(logLevelFlag)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .whm.yaml or ~/.config/whm/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log debug messages")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "lowest level logged: debug, info, warn or error (env "+logger.LevelEnv+")")
	addDashboardFlags(rootCmd)
}

// applyLogLevel exports a --log-level value so every logger created after
// this point sees it.
func applyLogLevel(value string) error {
	if value == "" {
		return nil
	}
	lvl, err := logger.ParseLevel(value)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid --log-level", "Use debug, info, warn or error")
	}
	return os.Setenv(logger.LevelEnv, lvl.String())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if isUnknownCommandError(err) {
			fmt.Fprintln(os.Stderr, unknownCommandHelp(err))
		} else {
			fmt.Fprint(os.Stderr, err.Error())
			if !strings.HasSuffix(err.Error(), "\n") {
				fmt.Fprintln(os.Stderr)
			}
		}
		os.Exit(1)
	}
}

// loadConfig loads and validates the config named by --config, or the one
// found from the working directory, or the defaults.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "whm"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(msg[start+1:], '"')
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func unknownCommandHelp(err error) string {
	name := extractUnknownCommand(err)
	if name == "" {
		return err.Error() + "\nRun 'whm --help' for usage."
	}
	var names []string
	for _, c := range rootCmd.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Name())
		}
	}
	return fmt.Sprintf("Unknown command %q. Available commands: %s", name, strings.Join(names, ", "))
}
