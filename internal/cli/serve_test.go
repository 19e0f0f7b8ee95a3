package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/collect"
	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/errors"
)

func TestNewReportSource(t *testing.T) {
	tests := []struct {
		source  string
		want    any
		wantErr bool
	}{
		{source: "", want: &collect.Collector{}},
		{source: config.SourceLocal, want: &collect.Collector{}},
		{source: config.SourceSSH, want: &collect.Collector{}},
		{source: config.SourceNodeExporter, want: &collect.NodeExporterSource{}},
		{source: "snmp", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			b := config.DefaultConfig().Backend
			b.Source = tt.source
			b.SSHHost = "nas"
			b.NodeExporterURL = "http://localhost:9100/metrics"

			src, release, err := newReportSource(b)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			defer release()
			assert.IsType(t, tt.want, src)
		})
	}
}

func TestSourceLabel(t *testing.T) {
	b := config.BackendConfig{Source: config.SourceSSH, SSHHost: "nas", NodeExporterURL: "http://x:9100/metrics"}
	assert.Equal(t, "nas", sourceLabel(b))
	b.Source = config.SourceNodeExporter
	assert.Equal(t, "http://x:9100/metrics", sourceLabel(b))
	b.Source = config.SourceLocal
	assert.Equal(t, "local", sourceLabel(b))
}

func serveConfig(t *testing.T, listen string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend.Listen = listen
	cfg.Backend.Database = filepath.Join(t.TempDir(), "chart_data.db")
	return cfg
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := serveConfig(t, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, cfg, false))
	assert.FileExists(t, cfg.Backend.Database)
}

func TestServe_BadListenAddress(t *testing.T) {
	cfg := serveConfig(t, "127.0.0.1:-1")

	err := serve(context.Background(), cfg, false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestServe_UnknownSource(t *testing.T) {
	cfg := serveConfig(t, "127.0.0.1:0")
	cfg.Backend.Source = "snmp"

	err := serve(context.Background(), cfg, false)
	require.Error(t, err)
	assert.NoFileExists(t, cfg.Backend.Database)
}
