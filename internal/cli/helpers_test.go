package cli

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
	"github.com/rileyhilliard/whm/internal/server"
	"github.com/rileyhilliard/whm/internal/store"
)

// useConfig writes a config file for the test and points --config at it.
func useConfig(t *testing.T, mutate func(cfg *config.Config)) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Backend.Database = filepath.Join(dir, "chart_data.db")
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, config.Write(path, cfg))

	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return cfg
}

// fakeSource serves a fixed report and counts collections.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	rep   *report.Report
	err   error
}

func (f *fakeSource) FetchReport(ctx context.Context) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rep, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleReport() *report.Report {
	return &report.Report{
		OS:     "#1 SMP PREEMPT_DYNAMIC Debian 6.1.76-1",
		Uptime: "up 3 days, 4 hours",
		CPU: report.Values{
			{Name: "user", Value: 12.5},
			{Name: "system", Value: 3.1},
			{Name: "idle", Value: 84.4},
		},
		Memory: report.MemoryPools{{
			Name: "Mem",
			Values: report.Values{
				{Name: "total", Value: 2097152},
				{Name: "used", Value: 1048576},
				{Name: "free", Value: 1048576},
				{Name: "utilization", Value: 50},
			},
		}},
		Drives: report.Drives{{
			Name: "sda", Size: "465.8G", Type: "disk", SmartHealth: "PASSED",
			Children: report.Drives{{Name: "sda1", Size: "512M", Type: "part", Mount: "/boot"}},
		}},
		LogicalVolumes: []report.LogicalVolume{
			{Filesystem: "/dev/sda2", KBlocks: "100", Used: "75", Available: "25", UsePercent: "75%", MountPoint: "/"},
		},
		Processes: []report.Process{{PID: "1", Cmd: "systemd"}, {PID: "2", Cmd: "kthreadd"}},
	}
}

// startBackend serves src and a fresh history store, and points server.url
// at it.
func startBackend(t *testing.T, src *fakeSource) (*config.Config, *store.Store) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "chart_data.db")
	st, err := store.Open(db, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ts := httptest.NewServer(server.New(src, st, logger.Noop()).Handler())
	t.Cleanup(ts.Close)

	cfg := useConfig(t, func(c *config.Config) {
		c.Server.URL = ts.URL
		c.Backend.Database = db
	})
	return cfg, st
}

func collectionFailed() error {
	return errors.New(errors.ErrExec, "Couldn't run top", "Install procps")
}
