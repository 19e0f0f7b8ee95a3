package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/ui"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the cached report",
	Long: `Remove the report cached for this session. The next dashboard or
report fetches a fresh one from the backend.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogout(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(w io.Writer) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cache, err := sessionCache(cfg)
	if err != nil {
		return err
	}
	if err := cache.Clear(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't clear the session cache", "Remove "+cache.Dir()+" by hand")
	}
	fmt.Fprintf(w, "%s Cleared the cached report in %s\n", ui.SuccessText(ui.SymbolSuccess), cache.Dir())
	return nil
}
