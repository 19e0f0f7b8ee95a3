package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Stamped by main from its ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	versionShortFlag bool
	versionJSONFlag  bool
)

// BuildInfo describes the running whm binary.
type BuildInfo struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Built    string `json:"built"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Long: `Print the whm version, commit and build date.

Binaries built with 'go install' carry no ldflags; their version and commit
come from the module build info instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild(debug.ReadBuildInfo)
		w := cmd.OutOrStdout()
		switch {
		case versionJSONFlag:
			return WriteJSONSuccess(w, info)
		case versionShortFlag:
			_, err := fmt.Fprintln(w, info.Version)
			return err
		}
		return writeBuildInfo(w, info)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShortFlag, "short", false, "print only the version")
	versionCmd.Flags().BoolVar(&versionJSONFlag, "json", false, "print JSON")
}

// SetVersionInfo records the ldflags stamped into main.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// currentBuild merges the ldflags values with what the toolchain embedded.
func currentBuild(read func() (*debug.BuildInfo, bool)) BuildInfo {
	info := BuildInfo{
		Version:  version,
		Commit:   commit,
		Built:    date,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := read()
	if !ok || bi == nil {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" && s.Value != "" {
				info.Commit = shortCommit(s.Value)
			}
		case "vcs.time":
			if info.Built == "unknown" && s.Value != "" {
				info.Built = s.Value
			}
		}
	}
	return info
}

func writeBuildInfo(w io.Writer, info BuildInfo) error {
	v := info.Version
	if v != "dev" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	_, err := fmt.Fprintf(w, "whm %s\n  commit    %s\n  built     %s\n  go        %s\n  platform  %s\n",
		v, info.Commit, info.Built, info.Go, info.Platform)
	return err
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
