package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but whm only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade whm, or lower 'version' in the config file.")
	}

	if err := validateServer(cfg.Server); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'server' section in your .whm.yaml.")
	}
	if err := validateDashboard(cfg.Dashboard); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'dashboard' section in your .whm.yaml.")
	}
	if err := validateBackend(cfg.Backend); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'backend' section in your .whm.yaml.")
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if err := validateURL("server.url", s.URL); err != nil {
		return err
	}
	if s.Timeout < 0 {
		return fmt.Errorf("server.timeout can't be negative (got %s)", s.Timeout)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}

func validateDashboard(d DashboardConfig) error {
	if _, err := history.ParseScope(d.DefaultScope); err != nil {
		return fmt.Errorf("dashboard.default_scope %q isn't one of hours, days, weeks", d.DefaultScope)
	}

	switch d.FieldOrder {
	case "", FieldOrderBackend, FieldOrderReport:
	case FieldOrderStatic:
		if len(d.StaticFields) == 0 {
			return fmt.Errorf("dashboard.field_order is static but dashboard.static_fields is empty")
		}
	default:
		return fmt.Errorf("dashboard.field_order %q isn't one of backend, report, static", d.FieldOrder)
	}

	seen := make(map[string]bool)
	for i, sf := range d.StaticFields {
		if strings.TrimSpace(sf.Prefix) == "" {
			return fmt.Errorf("dashboard.static_fields[%d] has no prefix", i)
		}
		if seen[sf.Prefix] {
			return fmt.Errorf("dashboard.static_fields lists %q twice", sf.Prefix)
		}
		seen[sf.Prefix] = true
		if len(sf.Fields) == 0 {
			return fmt.Errorf("dashboard.static_fields entry %q has no fields", sf.Prefix)
		}
	}
	return nil
}

func validateBackend(b BackendConfig) error {
	if b.Listen == "" {
		return fmt.Errorf("backend.listen is empty")
	}
	if b.Database == "" {
		return fmt.Errorf("backend.database is empty")
	}

	switch b.Source {
	case SourceLocal:
	case SourceSSH:
		if b.SSHHost == "" {
			return fmt.Errorf("backend.source is ssh but backend.ssh_host is empty")
		}
	case SourceNodeExporter:
		if err := validateURL("backend.node_exporter_url", b.NodeExporterURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("backend.source %q isn't one of local, ssh, node_exporter", b.Source)
	}

	if b.DmesgLines < 0 {
		return fmt.Errorf("backend.dmesg_lines can't be negative")
	}

	for _, iv := range []struct {
		name string
		d    time.Duration
	}{
		{"hours", b.Record.Hours},
		{"days", b.Record.Days},
		{"weeks", b.Record.Weeks},
	} {
		if iv.d > 0 && iv.d < time.Second {
			return fmt.Errorf("backend.record.%s of %s is too short (minimum 1s)", iv.name, iv.d)
		}
	}
	return nil
}

// RecordIntervals returns the recorder interval per scope.
func (b BackendConfig) RecordIntervals() map[history.Scope]time.Duration {
	return map[history.Scope]time.Duration{
		history.Hours: b.Record.Hours,
		history.Days:  b.Record.Days,
		history.Weeks: b.Record.Weeks,
	}
}

// RetentionUnits returns the retention per scope.
func (b BackendConfig) RetentionUnits() map[history.Scope]int {
	return map[history.Scope]int{
		history.Hours: b.Retention.Hours,
		history.Days:  b.Retention.Days,
		history.Weeks: b.Retention.Weeks,
	}
}
