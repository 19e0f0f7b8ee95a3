// Package cli implements the whm command-line interface.
//
// The root command is "whm"; with no subcommand it opens the dashboard.
//
//	whm [dashboard]          - Terminal dashboard backed by a whm server
//	whm serve                - Collect reports, record history, serve both
//	whm report               - Print one report (JSON when piped)
//	whm history              - Print one history chart
//	whm init                 - Create .whm.yaml
//	whm logout               - Drop the cached report
//	whm version              - Print version information
//
// Global flags (--config, --no-color, --debug) are defined on the root
// command and available to all subcommands. Commands load config through
// loadConfig, which falls back to defaults when no file exists.
package cli
