package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/config"
	"github.com/rileyhilliard/whm/internal/dashboard"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
)

func TestDashboardOptions(t *testing.T) {
	t.Run("config defaults", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Server.Timeout = 5 * time.Second

		opts, err := dashboardOptions(cfg, "", "")
		require.NoError(t, err)
		assert.Equal(t, dashboard.PageHome, opts.Page)
		assert.Equal(t, history.Hours, opts.Scope)
		assert.Equal(t, 5*time.Second, opts.Timeout)
		assert.Equal(t, dashboard.FieldsFromBackend, opts.Pages.FieldSource)
		assert.Nil(t, opts.Pages.StaticFields)
	})

	t.Run("flags win", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Dashboard.Page = dashboard.PageCPU
		cfg.Dashboard.DefaultScope = "days"

		opts, err := dashboardOptions(cfg, dashboard.PageStorage, "weeks")
		require.NoError(t, err)
		assert.Equal(t, dashboard.PageStorage, opts.Page)
		assert.Equal(t, history.Weeks, opts.Scope)
	})

	t.Run("static field order", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Dashboard.FieldOrder = config.FieldOrderStatic
		cfg.Dashboard.StaticFields = []config.StaticFields{{Prefix: "cpu", Fields: []string{"idle", "user"}}}

		opts, err := dashboardOptions(cfg, "", "")
		require.NoError(t, err)
		assert.Equal(t, dashboard.FieldsStatic, opts.Pages.FieldSource)
		assert.Equal(t, map[string][]string{"cpu": {"idle", "user"}}, opts.Pages.StaticFields)
	})

	for _, tt := range []struct {
		name, page, scope string
		mutate            func(cfg *config.Config)
	}{
		{name: "unknown page", page: "gpu"},
		{name: "unknown scope", scope: "months"},
		{name: "unknown field order", mutate: func(cfg *config.Config) { cfg.Dashboard.FieldOrder = "alphabetical" }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			_, err := dashboardOptions(cfg, tt.page, tt.scope)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestSessionCache(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = t.TempDir()

	cache, err := sessionCache(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Cache.Dir, "session"), cache.Dir())
}
