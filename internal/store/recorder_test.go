package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

type fakeSource struct {
	mu    sync.Mutex
	rep   *report.Report
	err   error
	fulls []bool
}

func (f *fakeSource) Collect(ctx context.Context, full bool) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fulls = append(f.fulls, full)
	return f.rep, f.err
}

func hostReport() *report.Report {
	return &report.Report{
		CPU: cpu(10, 5, 85),
		Memory: report.MemoryPools{
			{Name: "Mem", Values: report.Values{{Name: "total", Value: 100}, {Name: "used", Value: 25}}},
			{Name: "Swap", Values: report.Values{{Name: "total", Value: 10}, {Name: "used", Value: 0}}},
		},
		Sensors: report.SensorDevices{
			{Key: "device0", Name: "coretemp-isa-0000", Values: report.Values{{Name: "temp1_input", Value: 45}}},
		},
		LogicalVolumes: []report.LogicalVolume{
			{MountPoint: "/", UsePercent: "40%"},
			{MountPoint: "/srv/data", UsePercent: "7%"},
			{MountPoint: "/proc", UsePercent: "-"},
		},
		Processes: []report.Process{{PID: "1", Cmd: "init"}},
	}
}

func TestRecorder_RecordOnce(t *testing.T) {
	s, _ := openStore(t)
	src := &fakeSource{rep: hostReport()}
	r := NewRecorder(s, src, nil, nil)
	ctx := context.Background()

	n, err := r.RecordOnce(ctx, history.Days)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []bool{false}, src.fulls, "recording only needs a partial report")

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cpu_days",
		"mem_Mem_days",
		"mem_Swap_days",
		"sens_coretemp-isa-0000_days",
		"sto_days",
	}, tables)

	keys, err := s.Keys(ctx, "sto_days")
	require.NoError(t, err)
	assert.Equal(t, []string{"_", "_srv_data"}, keys)

	rows, err := s.Rows(ctx, "sto_days")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []float64{40, 7}, rows[0].Values)
}

func TestRecorder_SourceFailure(t *testing.T) {
	s, _ := openStore(t)
	src := &fakeSource{err: fmt.Errorf("host unreachable")}
	r := NewRecorder(s, src, nil, nil)

	var got []error
	r.OnRecord = func(scope history.Scope, rows int, err error) {
		assert.Equal(t, history.Hours, scope)
		assert.Zero(t, rows)
		got = append(got, err)
	}

	_, err := r.RecordOnce(context.Background(), history.Hours)
	require.Error(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, err, got[0])
}

func TestRecorder_BadGroupDoesNotStopOthers(t *testing.T) {
	s, _ := openStore(t)
	rep := hostReport()
	rep.Sensors[0].Values = report.Values{{Name: "temp 1", Value: 45}}
	log := logger.NewBufferLogger()
	r := NewRecorder(s, &fakeSource{rep: rep}, nil, log)

	n, err := r.RecordOnce(context.Background(), history.Hours)
	require.Error(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, log.HasLevel(logger.LevelWarn))
}

func TestRecorder_Run(t *testing.T) {
	s, _ := openStore(t)
	r := NewRecorder(s, &fakeSource{rep: hostReport()}, map[history.Scope]time.Duration{
		history.Hours: 5 * time.Millisecond,
		history.Days:  0,
		history.Weeks: -1,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	passes := make(chan history.Scope, 16)
	r.OnRecord = func(scope history.Scope, rows int, err error) {
		select {
		case passes <- scope:
		default:
		}
	}

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case scope := <-passes:
			assert.Equal(t, history.Hours, scope)
		case <-time.After(5 * time.Second):
			t.Fatal("recorder never ran")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tables, "cpu_hours")
	assert.NotContains(t, tables, "cpu_days")
	assert.NotContains(t, tables, "cpu_weeks")
}

func TestNewRecorder_DefaultIntervals(t *testing.T) {
	r := NewRecorder(nil, nil, map[history.Scope]time.Duration{history.Days: time.Minute}, nil)
	assert.Equal(t, time.Hour, r.intervals[history.Hours])
	assert.Equal(t, time.Minute, r.intervals[history.Days])
	assert.Equal(t, 7*24*time.Hour, r.intervals[history.Weeks])
}
