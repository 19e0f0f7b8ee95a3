package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/ui"
	"github.com/rileyhilliard/whm/pkg/sshutil"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Path            string // Config file to write
	ServerURL       string // Pre-specified backend URL
	Source          string // Pre-specified backend source
	SSHHost         string // Pre-specified SSH host for the ssh source
	NodeExporterURL string // Pre-specified endpoint for the node_exporter source
	Overwrite       bool   // Overwrite existing config without asking
	NonInteractive  bool   // Skip prompts, use flags and defaults
}

// initAnswers are the values init asks for, keyed by their config path.
type initAnswers struct {
	ServerURL       string
	Source          string
	SSHHost         string
	NodeExporterURL string
}

func (a initAnswers) settings() [][2]string {
	out := [][2]string{
		{"server.url", a.ServerURL},
		{"backend.source", a.Source},
	}
	switch a.Source {
	case config.SourceSSH:
		out = append(out, [2]string{"backend.ssh_host", a.SSHHost})
	case config.SourceNodeExporter:
		out = append(out, [2]string{"backend.node_exporter_url", a.NodeExporterURL})
	}
	return out
}

func (a initAnswers) apply(cfg *config.Config) {
	cfg.Server.URL = a.ServerURL
	cfg.Backend.Source = a.Source
	cfg.Backend.SSHHost = a.SSHHost
	cfg.Backend.NodeExporterURL = a.NodeExporterURL
}

var (
	initServerFlag       string
	initSourceFlag       string
	initSSHHostFlag      string
	initNodeExporterFlag string
	initForce            bool
	initNonInteractive   bool
	initGlobal           bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .whm.yaml config file",
	Long: `Create a .whm.yaml in the current directory (or the global config with
--global).

You are asked where the backend runs and where it collects metrics from.
When the file already exists you can overwrite it, or keep it and only
update the answered keys.

Examples:
  whm init
  whm init --global
  whm init --non-interactive --server http://nas:5000
  whm init --non-interactive --source ssh --ssh-host nas --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".", config.ConfigFileName)
		if initGlobal {
			var err error
			if path, err = config.GlobalPath(); err != nil {
				return err
			}
		}
		return Init(InitOptions{
			Path:            path,
			ServerURL:       initServerFlag,
			Source:          initSourceFlag,
			SSHHost:         initSSHHostFlag,
			NodeExporterURL: initNodeExporterFlag,
			Overwrite:       initForce,
			NonInteractive:  initNonInteractive,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initServerFlag, "server", "", "backend URL, e.g. http://localhost:5000")
	initCmd.Flags().StringVar(&initSourceFlag, "source", "", "backend source: local, ssh or node_exporter")
	initCmd.Flags().StringVar(&initSSHHostFlag, "ssh-host", "", "SSH host or alias for the ssh source")
	initCmd.Flags().StringVar(&initNodeExporterFlag, "node-exporter-url", "", "metrics endpoint for the node_exporter source")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "don't prompt; use flags and defaults")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "write ~/.config/whm/config.yaml")
}

// Init creates or updates a config file.
func Init(opts InitOptions, w io.Writer) error {
	exists := false
	if _, err := os.Stat(opts.Path); err == nil {
		exists = true
	}

	overwrite := opts.Overwrite || !exists
	if !overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", opts.Path),
				"Use --force to overwrite")
		}
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("'%s' already exists. Overwrite it?", opts.Path)).
				Description("No keeps the file and only updates the keys you answer next.").
				Value(&overwrite),
		))
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
	}

	var answers initAnswers
	var err error
	if opts.NonInteractive {
		answers, err = answersFromFlags(opts)
	} else {
		answers, err = promptAnswers(opts, w)
	}
	if err != nil {
		return err
	}

	if !overwrite {
		for _, kv := range answers.settings() {
			if err := config.SetValue(opts.Path, kv[0], kv[1]); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Couldn't update "+opts.Path, "Check the file is valid YAML")
			}
		}
		fmt.Fprintf(w, "%s Updated %s\n", ui.SuccessText(ui.SymbolSuccess), opts.Path)
		return nil
	}

	cfg := config.DefaultConfig()
	answers.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(opts.Path, cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+opts.Path, "Check directory permissions")
	}

	fmt.Fprintf(w, "%s Created %s\n\n", ui.SuccessText(ui.SymbolSuccess), opts.Path)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  %s on the monitored side: whm serve\n", ui.MutedText("1."))
	fmt.Fprintf(w, "  %s anywhere: whm dashboard\n", ui.MutedText("2."))
	return nil
}

func answersFromFlags(opts InitOptions) (initAnswers, error) {
	defaults := config.DefaultConfig()
	a := initAnswers{
		ServerURL:       opts.ServerURL,
		Source:          opts.Source,
		SSHHost:         opts.SSHHost,
		NodeExporterURL: opts.NodeExporterURL,
	}
	if a.ServerURL == "" {
		a.ServerURL = defaults.Server.URL
	}
	if a.Source == "" {
		a.Source = config.SourceLocal
	}

	switch a.Source {
	case config.SourceLocal:
	case config.SourceSSH:
		if a.SSHHost == "" {
			return a, errors.New(errors.ErrConfig,
				"SSH host is required for the ssh source in non-interactive mode",
				"Provide --ssh-host or run interactively")
		}
	case config.SourceNodeExporter:
		if a.NodeExporterURL == "" {
			a.NodeExporterURL = defaultNodeExporterURL
		}
	default:
		return a, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown source %q", a.Source),
			"Use one of: local, ssh, node_exporter")
	}
	return a, nil
}

const defaultNodeExporterURL = "http://localhost:9100/metrics"

func promptAnswers(opts InitOptions, w io.Writer) (initAnswers, error) {
	a, _ := answersFromFlags(InitOptions{ServerURL: opts.ServerURL, Source: opts.Source})
	a.SSHHost = opts.SSHHost
	a.NodeExporterURL = opts.NodeExporterURL

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Where 'whm serve' listens, as seen from this machine").
				Placeholder("http://localhost:5000").
				Value(&a.ServerURL).
				Validate(validateHTTPURL),
			huh.NewSelect[string]().
				Title("Collect metrics from").
				Options(
					huh.NewOption("This machine", config.SourceLocal),
					huh.NewOption("A host over SSH", config.SourceSSH),
					huh.NewOption("A node_exporter endpoint", config.SourceNodeExporter),
				).
				Value(&a.Source),
		),
	)
	if err := form.Run(); err != nil {
		return a, inputErr(err)
	}

	switch a.Source {
	case config.SourceSSH:
		if a.SSHHost == "" {
			host, err := promptSSHHost()
			if err != nil {
				return a, err
			}
			a.SSHHost = host
		}
		if err := checkSSH(a.SSHHost, w); err != nil {
			return a, err
		}
	case config.SourceNodeExporter:
		if a.NodeExporterURL == "" {
			a.NodeExporterURL = defaultNodeExporterURL
		}
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("node_exporter metrics URL").
				Value(&a.NodeExporterURL).
				Validate(validateHTTPURL),
		))
		if err := form.Run(); err != nil {
			return a, inputErr(err)
		}
	}
	return a, nil
}

// promptSSHHost offers the aliases from ~/.ssh/config, falling back to a
// typed host.
func promptSSHHost() (string, error) {
	hosts, err := sshutil.ParseConfig()
	if err != nil {
		hosts = nil
	}

	picked, cancelled, err := ui.PickHost(hosts)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Host picker failed", "Pass --ssh-host instead")
	}
	if cancelled {
		return "", errors.New(errors.ErrConfig, "No host selected", "Pass --ssh-host or pick a host")
	}
	if picked != nil {
		return picked.Alias, nil
	}

	var host string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("SSH host or alias").
			Description("hostname, user@host or an alias from ~/.ssh/config").
			Placeholder("nas or root@192.168.1.10").
			Value(&host).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("SSH host is required")
				}
				return nil
			}),
	))
	if err := form.Run(); err != nil {
		return "", inputErr(err)
	}
	return strings.TrimSpace(host), nil
}

// checkSSH dials host once. On failure the user may keep the host anyway.
func checkSSH(host string, w io.Writer) error {
	fmt.Fprintln(w)
	err := ui.WithProgress(w, "Testing connection to "+host, func() error {
		client, err := sshutil.Dial(host, config.DefaultConfig().Backend.SSHTimeout)
		if err != nil {
			return err
		}
		return client.Close()
	})
	if err == nil {
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", err.Error())

	var saveAnyway bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Save config anyway? (You can fix the connection later)").
			Value(&saveAnyway),
	))
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return err
	}
	return nil
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http(s) URL, e.g. http://localhost:5000")
	}
	return nil
}

func inputErr(err error) error {
	return errors.WrapWithCode(err, errors.ErrConfig,
		"Failed to get user input",
		"Check terminal compatibility or use --non-interactive")
}
