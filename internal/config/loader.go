package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".whm.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/whm"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. WHM_SERVER_URL.
	EnvPrefix = "WHM"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'whm init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .whm.yaml in current directory
// 3. .whm.yaml in parent directories (stops at home)
// 4. ~/.config/whm/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			break
		}
		dir = parent
	}

	if home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if
// none exists. Environment overrides apply either way.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// GlobalPath returns ~/.config/whm/config.yaml.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine home directory", "Set $HOME")
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so environment overrides are seen by
// Unmarshal even when the file omits the key.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("server.timeout", d.Server.Timeout.String())
	v.SetDefault("dashboard.page", d.Dashboard.Page)
	v.SetDefault("dashboard.default_scope", d.Dashboard.DefaultScope)
	v.SetDefault("dashboard.field_order", d.Dashboard.FieldOrder)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("backend.listen", d.Backend.Listen)
	v.SetDefault("backend.database", d.Backend.Database)
	v.SetDefault("backend.source", d.Backend.Source)
	v.SetDefault("backend.ssh_host", d.Backend.SSHHost)
	v.SetDefault("backend.ssh_timeout", d.Backend.SSHTimeout.String())
	v.SetDefault("backend.node_exporter_url", d.Backend.NodeExporterURL)
	v.SetDefault("backend.interface", d.Backend.Interface)
	v.SetDefault("backend.dmesg_lines", d.Backend.DmesgLines)
	v.SetDefault("backend.record.hours", d.Backend.Record.Hours.String())
	v.SetDefault("backend.record.days", d.Backend.Record.Days.String())
	v.SetDefault("backend.record.weeks", d.Backend.Record.Weeks.String())
	v.SetDefault("backend.retention.hours", d.Backend.Retention.Hours)
	v.SetDefault("backend.retention.days", d.Backend.Retention.Days)
	v.SetDefault("backend.retention.weeks", d.Backend.Retention.Weeks)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		hint := "Check the YAML syntax"
		if path != "" {
			hint += " in " + path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Invalid config format", hint)
	}

	cfg.Cache.Dir = ExpandTilde(cfg.Cache.Dir)
	cfg.Backend.Database = ExpandTilde(cfg.Backend.Database)
	return cfg, nil
}
