package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/chart"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

const pageReport = `{
  "demo": true,
  "cpu": {"user": "10", "system": "5", "idle": "85"},
  "memory": {
    "Mem": {"total": 16, "used": 4, "free": 12, "utilization": 25},
    "Swap": {"total": 2, "used": 0, "free": 2, "utilization": 0}
  },
  "sensors": {
    "device0": {"name0": "coretemp-isa-0000", "name1": "ISA adapter", "values": {"temp1_input": 45, "temp1_max": 80, "temp1_crit": 100}}
  },
  "drives": {
    "sda": {"size": "512M", "type": "disk", "smart_health": "PASSED",
      "children": {"sda1": {"size": "256M", "type": "part", "mount": "/boot"}}},
    "sdb": {"size": "2T", "type": "disk"},
    "sdc": {"size": "12X", "type": "disk"}
  },
  "logical_volumes": [
    {"filesystem": "/dev/sda1", "k_blocks": "100", "used": "40", "available": "60", "use_percent": "40%", "mount_point": "/"},
    {"filesystem": "/dev/sdb1", "k_blocks": "100", "used": "7", "available": "93", "use_percent": "7%", "mount_point": "/srv/data"}
  ],
  "processes": [{"pid": "12", "tty": "?", "time": "00:00:01", "cmd": "kworker"}, {"pid": "3", "tty": "?", "time": "00:00:00", "cmd": "init"}],
  "uptime": "up 2 days",
  "os": "#1 SMP Debian",
  "dmesg": "[    0.000000] Linux version 6.1\n"
}`

func decodePageReport(t *testing.T) *report.Report {
	t.Helper()
	r, err := report.Decode([]byte(pageReport))
	require.NoError(t, err)
	return r
}

func pageDeps(fetcher history.Fetcher) (PanelDeps, *recordingAlerter) {
	alerter := &recordingAlerter{}
	return PanelDeps{
		Fetcher:  fetcher,
		Renderer: chart.NewRenderer(),
		Document: NewDocument(TargetContainer),
		Alerter:  alerter,
	}, alerter
}

func TestRouter_ChartPages(t *testing.T) {
	tests := []struct {
		page      string
		prefixes  []string
		kind      chart.Kind
		current   []string
		unchecked []string
	}{
		{PageCPU, []string{"cpu"}, chart.Doughnut, []string{"user", "system", "idle"}, []string{"idle"}},
		{PageMemory, []string{"mem_Mem", "mem_Swap"}, chart.Doughnut, []string{"used", "free"}, []string{"total", "free", "utilization"}},
		{PageSensors, []string{"sens_coretemp-isa-0000"}, chart.Bar, []string{"temp1_input", "temp1_crit"}, nil},
		{PageStorage, []string{"sto"}, chart.Bar, []string{"_", "_srv_data"}, nil},
	}

	r := decodePageReport(t)
	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			deps, _ := pageDeps(&fakeFetcher{})
			panels, err := NewRouter().Build(tt.page, r, deps, PageOptions{FieldSource: FieldsFromReport})
			require.NoError(t, err)
			require.Len(t, panels, len(tt.prefixes))

			for i, p := range panels {
				assert.Equal(t, tt.prefixes[i], p.Prefix())
				cfg := p.CurrentChart().Config()
				assert.Equal(t, tt.kind, cfg.Kind)
				assert.Equal(t, tt.current, cfg.Labels)
				assert.Equal(t, tt.kind == chart.Doughnut, cfg.Options.Legend)

				assert.Equal(t, StateInitializing, p.State())
				p.Start(history.Hours)
				for _, name := range tt.unchecked {
					if cb := p.Section().Form.Box(name); cb != nil {
						assert.False(t, cb.Checked, name)
					}
				}
				assert.NotContains(t, p.Selection(), "idle")
			}
		})
	}
}

func TestRouter_PanelsShareOneContainer(t *testing.T) {
	deps, _ := pageDeps(&fakeFetcher{})
	panels, err := NewRouter().Build(PageMemory, decodePageReport(t), deps, PageOptions{})
	require.NoError(t, err)

	c, err := deps.Document.Container(TargetContainer)
	require.NoError(t, err)
	require.Len(t, c.Sections, 2)
	assert.Same(t, panels[0].Section(), c.Sections[0])
	assert.Same(t, panels[1].Section(), c.Sections[1])
	assert.Equal(t, "mem_Swap_history", panels[1].Section().History.ID)
}

func TestRouter_StaticFieldsFallBackToReport(t *testing.T) {
	deps, _ := pageDeps(&fakeFetcher{})
	opts := PageOptions{
		FieldSource:  FieldsStatic,
		StaticFields: map[string][]string{"mem_Mem": {"free", "used", "total", "utilization"}},
	}
	panels, err := NewRouter().Build(PageMemory, decodePageReport(t), deps, opts)
	require.NoError(t, err)
	require.Len(t, panels, 2)

	panels[0].Start(history.Hours)
	panels[1].Start(history.Hours)
	assert.Equal(t, []string{"free", "used", "total", "utilization"}, panels[0].Fields())
	assert.Equal(t, []string{"total", "used", "free", "utilization"}, panels[1].Fields())
}

func TestRouter_UnknownPage(t *testing.T) {
	deps, _ := pageDeps(&fakeFetcher{})
	_, err := NewRouter().Build("settings", decodePageReport(t), deps, PageOptions{})
	assert.Error(t, err)
}

func TestRouter_EmptyGroupPage(t *testing.T) {
	deps, _ := pageDeps(&fakeFetcher{})
	panels, err := NewRouter().Build(PageSensors, &report.Report{}, deps, PageOptions{})
	require.NoError(t, err)
	assert.Empty(t, panels)

	s := deps.Document.Section("sensors")
	require.NotNil(t, s)
	assert.Equal(t, "Nothing reported for this host.", s.Text)
}

func TestBuildStorage_DrivesAndWarnings(t *testing.T) {
	deps, _ := pageDeps(&fakeFetcher{})
	log := logger.NewBufferLogger()
	deps.Log = log

	_, err := NewRouter().Build(PageStorage, decodePageReport(t), deps, PageOptions{FieldSource: FieldsFromReport})
	require.NoError(t, err)

	drives := deps.Document.Section("drives")
	require.NotNil(t, drives)
	assert.Equal(t, [][]string{
		{"sda", "disk", "0.5", "-", "PASSED"},
		{"  sda1", "part", "0.25", "/boot", "-"},
		{"sdb", "disk", "2048", "-", "-"},
		{"sdc", "disk", "?", "-", "-"},
	}, drives.Table.Rows)

	require.Len(t, drives.Warnings, 1)
	assert.Contains(t, drives.Warnings[0], "Data integrity: sdc")
	assert.True(t, log.HasLevel(logger.LevelWarn))

	canvas := deps.Renderer.Canvas("drives_current")
	require.Equal(t, 1, canvas.Live())
	cfg := canvas.Current().Config()
	assert.Equal(t, chart.Bar, cfg.Kind)
	assert.Equal(t, []string{"sda", "sdb"}, cfg.Labels)
	assert.Equal(t, []float64{0.5, 2048}, cfg.Datasets[0].Data)
}

func TestBuildHome(t *testing.T) {
	deps, _ := pageDeps(&fakeFetcher{})
	panels, err := NewRouter().Build(PageHome, decodePageReport(t), deps, PageOptions{})
	require.NoError(t, err)
	assert.Empty(t, panels)

	home := deps.Document.Section("home")
	require.NotNil(t, home)
	assert.Contains(t, home.Text, "Demo mode")
	assert.Contains(t, home.Text, "up 2 days")

	summary := deps.Document.Section("summary")
	require.NotNil(t, summary)
	assert.Contains(t, summary.Table.Rows, []string{"memory", "2"})
	assert.Contains(t, summary.Table.Rows, []string{"drives", "3"})
}

func TestTextPages(t *testing.T) {
	r := decodePageReport(t)

	deps, _ := pageDeps(&fakeFetcher{})
	_, err := NewRouter().Build(PageLogs, r, deps, PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "[    0.000000] Linux version 6.1", deps.Document.Section("logs").Text)

	deps, _ = pageDeps(&fakeFetcher{})
	_, err = NewRouter().Build(PageNetwork, r, deps, PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "-", deps.Document.Section("network").Text)

	deps, _ = pageDeps(&fakeFetcher{})
	_, err = NewRouter().Build(PageProcesses, r, deps, PageOptions{})
	require.NoError(t, err)
	rows := deps.Document.Section("processes").Table.Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0][0])
}
