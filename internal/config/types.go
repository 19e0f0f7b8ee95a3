package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Collection sources of the backend.
const (
	SourceLocal        = "local"
	SourceSSH          = "ssh"
	SourceNodeExporter = "node_exporter"
)

// Field order sources of the dashboard.
const (
	FieldOrderBackend = "backend"
	FieldOrderReport  = "report"
	FieldOrderStatic  = "static"
)

// Config represents the complete .whm.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Backend   BackendConfig   `yaml:"backend" mapstructure:"backend"`
}

// ServerConfig is how clients reach the backend.
type ServerConfig struct {
	// URL of the backend, e.g. http://localhost:5000.
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout bounds one request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DashboardConfig tunes the terminal dashboard.
type DashboardConfig struct {
	// Page shown first: home, cpu, memory, sensors, storage, processes, logs, network.
	Page string `yaml:"page" mapstructure:"page"`

	// DefaultScope of history charts: hours, days or weeks.
	DefaultScope string `yaml:"default_scope" mapstructure:"default_scope"`

	// FieldOrder is where panels get their field order: backend, report or static.
	FieldOrder string `yaml:"field_order" mapstructure:"field_order"`

	// StaticFields lists the field order per prefix when FieldOrder is static.
	StaticFields []StaticFields `yaml:"static_fields,omitempty" mapstructure:"static_fields"`
}

// StaticFields is the fixed field order of one panel prefix.
type StaticFields struct {
	Prefix string   `yaml:"prefix" mapstructure:"prefix"`
	Fields []string `yaml:"fields" mapstructure:"fields"`
}

// CacheConfig locates the session cache.
type CacheConfig struct {
	// Dir holds the cached report. Empty means the user cache dir.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// BackendConfig configures `whm serve`.
type BackendConfig struct {
	// Listen is the address the backend binds.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// Database is the sqlite file of history tables.
	Database string `yaml:"database" mapstructure:"database"`

	// Source of reports: local, ssh or node_exporter.
	Source string `yaml:"source" mapstructure:"source"`

	// SSHHost is a host name or SSH config alias, for the ssh source.
	SSHHost string `yaml:"ssh_host,omitempty" mapstructure:"ssh_host"`

	// SSHTimeout bounds the SSH dial.
	SSHTimeout time.Duration `yaml:"ssh_timeout" mapstructure:"ssh_timeout"`

	// NodeExporterURL is the /metrics endpoint, for the node_exporter source.
	NodeExporterURL string `yaml:"node_exporter_url,omitempty" mapstructure:"node_exporter_url"`

	// Interface whose counters the network page shows.
	Interface string `yaml:"interface" mapstructure:"interface"`

	// DmesgLines is how much of the kernel log a report carries.
	DmesgLines int `yaml:"dmesg_lines" mapstructure:"dmesg_lines"`

	// Record sets how often each scope is sampled. Zero disables a scope.
	Record ScopeDurations `yaml:"record" mapstructure:"record"`

	// Retention sets how many scope units of rows each table keeps.
	Retention ScopeCounts `yaml:"retention" mapstructure:"retention"`
}

// ScopeDurations holds one duration per history scope.
type ScopeDurations struct {
	Hours time.Duration `yaml:"hours" mapstructure:"hours"`
	Days  time.Duration `yaml:"days" mapstructure:"days"`
	Weeks time.Duration `yaml:"weeks" mapstructure:"weeks"`
}

// ScopeCounts holds one count per history scope.
type ScopeCounts struct {
	Hours int `yaml:"hours" mapstructure:"hours"`
	Days  int `yaml:"days" mapstructure:"days"`
	Weeks int `yaml:"weeks" mapstructure:"weeks"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server: ServerConfig{
			URL:     "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		Dashboard: DashboardConfig{
			Page:         "home",
			DefaultScope: "hours",
			FieldOrder:   FieldOrderBackend,
		},
		Backend: BackendConfig{
			Listen:     ":5000",
			Database:   "chart_data.db",
			Source:     SourceLocal,
			SSHTimeout: 10 * time.Second,
			Interface:  "eth0",
			DmesgLines: 200,
			Record: ScopeDurations{
				Hours: time.Hour,
				Days:  24 * time.Hour,
				Weeks: 7 * 24 * time.Hour,
			},
			Retention: ScopeCounts{Hours: 48, Days: 30, Weeks: 52},
		},
	}
}

// StaticFieldMap returns StaticFields keyed by prefix.
func (d DashboardConfig) StaticFieldMap() map[string][]string {
	if len(d.StaticFields) == 0 {
		return nil
	}
	m := make(map[string][]string, len(d.StaticFields))
	for _, sf := range d.StaticFields {
		m[sf.Prefix] = sf.Fields
	}
	return m
}
