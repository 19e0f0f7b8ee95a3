package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/api"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
	"github.com/rileyhilliard/whm/internal/store"
)

type fakeSource struct {
	rep *report.Report
	err error
}

func (f *fakeSource) FetchReport(ctx context.Context) (*report.Report, error) {
	return f.rep, f.err
}

type brokenStore struct{}

func (brokenStore) Keys(ctx context.Context, table string) ([]string, error) {
	return nil, fmt.Errorf("disk I/O error")
}

func (brokenStore) Table(ctx context.Context, table string) ([]string, []history.Row, error) {
	return nil, nil, fmt.Errorf("disk I/O error")
}

func sampleReport() *report.Report {
	return &report.Report{
		Demo:   true,
		CPU:    report.Values{{Name: "user", Value: 10}, {Name: "system", Value: 5}, {Name: "idle", Value: 85}},
		Uptime: "3 hours",
	}
}

func newBackend(t *testing.T, src ReportSource) (*httptest.Server, *store.Store, *Server) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chart_data.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := New(src, st, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, st, s
}

func postChart(t *testing.T, base string, form url.Values) map[string]interface{} {
	t.Helper()
	resp, err := http.PostForm(base+api.ChartPath, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestGetReport(t *testing.T) {
	srv, _, _ := newBackend(t, &fakeSource{rep: sampleReport()})

	client, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	rep, err := client.FetchReport(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Demo)
	assert.Equal(t, []string{"user", "system", "idle"}, rep.CPU.Names())
	assert.Equal(t, "3 hours", rep.Uptime)
}

func TestGetReport_CollectionFailure(t *testing.T) {
	srv, _, _ := newBackend(t, &fakeSource{err: fmt.Errorf("ssh: handshake failed")})

	resp, err := http.Get(srv.URL + api.ReportPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["reported"])
	assert.Contains(t, body["error"], "handshake failed")
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newBackend(t, &fakeSource{rep: sampleReport()})

	resp, err := http.Post(srv.URL+api.ReportPath, "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + api.ChartPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChartData(t *testing.T) {
	srv, st, _ := newBackend(t, &fakeSource{rep: sampleReport()})
	ctx := context.Background()
	require.NoError(t, st.Record(ctx, "cpu", history.Days, sampleReport().CPU))
	require.NoError(t, st.Record(ctx, "cpu", history.Hours, sampleReport().CPU))

	t.Run("keys", func(t *testing.T) {
		body := postChart(t, srv.URL, url.Values{"data_set": {"cpu"}, "scale": {"days"}, "data_needed": {"keys"}})
		assert.Equal(t, true, body["success"])
		assert.Equal(t, []interface{}{"user", "system", "idle"}, body["keys"])
	})

	t.Run("history", func(t *testing.T) {
		body := postChart(t, srv.URL, url.Values{"data_set": {"cpu"}, "scale": {"days"}, "data_needed": {"history"}})
		assert.Equal(t, true, body["success"])
		rows, ok := body["data"].([]interface{})
		require.True(t, ok)
		require.Len(t, rows, 1)
		row := rows[0].([]interface{})
		assert.Len(t, row, 4)
		assert.Equal(t, []interface{}{10.0, 5.0, 85.0}, row[1:])
		assert.Equal(t, []interface{}{"user", "system", "idle"}, body["keys"], "history names its columns")
	})

	t.Run("scale defaults to hours", func(t *testing.T) {
		body := postChart(t, srv.URL, url.Values{"data_set": {"cpu"}, "data_needed": {"keys"}})
		assert.Equal(t, true, body["success"])
	})

	t.Run("unknown table", func(t *testing.T) {
		body := postChart(t, srv.URL, url.Values{"data_set": {"cpu"}, "scale": {"weeks"}, "data_needed": {"history"}})
		assert.Equal(t, map[string]interface{}{"success": false, "data": MsgNoTable}, body)
	})

	t.Run("invalid identifier", func(t *testing.T) {
		body := postChart(t, srv.URL, url.Values{"data_set": {"cpu; DROP TABLE cpu_days"}, "data_needed": {"keys"}})
		assert.Equal(t, map[string]interface{}{"success": false, "data": MsgNoTable}, body)
	})

	t.Run("unknown need", func(t *testing.T) {
		body := postChart(t, srv.URL, url.Values{"data_set": {"cpu"}, "data_needed": {"everything"}})
		assert.Equal(t, map[string]interface{}{"success": false, "data": MsgBadNeed}, body)
	})
}

func TestChartData_ThroughFetcher(t *testing.T) {
	srv, st, _ := newBackend(t, &fakeSource{rep: sampleReport()})
	require.NoError(t, st.Record(context.Background(), "mem_Mem", history.Hours,
		report.Values{{Name: "total", Value: 100}, {Name: "used", Value: 25}}))

	client, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	f := history.NewBackendFetcher(client, nil)

	fields, err := f.FetchFieldOrder(context.Background(), "mem_Mem")
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "used"}, fields)

	series, err := f.FetchHistory(context.Background(), "mem_Mem", history.Hours)
	require.NoError(t, err)
	labeled, err := series.WithFields(fields)
	require.NoError(t, err)
	assert.Equal(t, []float64{25}, labeled.Column("used"))

	series, err = f.FetchHistory(context.Background(), "mem_Mem", history.Weeks)
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestChartData_ScopesWithDifferentLayouts(t *testing.T) {
	srv, st, _ := newBackend(t, &fakeSource{rep: sampleReport()})
	ctx := context.Background()

	record := func(scope history.Scope, values report.Values) {
		t.Helper()
		require.NoError(t, st.Record(ctx, "sto", scope, values))
	}
	record(history.Hours, report.Values{{Name: "_", Value: 50}, {Name: "_boot", Value: 90}})
	record(history.Hours, report.Values{{Name: "_", Value: 51}, {Name: "_boot", Value: 90}, {Name: "_mnt", Value: 20}})
	record(history.Days, report.Values{{Name: "_", Value: 40}, {Name: "_boot", Value: 80}})
	record(history.Weeks, report.Values{{Name: "_", Value: 30}, {Name: "_mnt", Value: 22}, {Name: "_boot", Value: 70}})

	client, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	f := history.NewBackendFetcher(client, nil)

	fields, err := f.FetchFieldOrder(ctx, "sto")
	require.NoError(t, err)
	require.Equal(t, []string{"_", "_boot", "_mnt"}, fields)

	t.Run("days lacks a column", func(t *testing.T) {
		series, err := f.FetchHistory(ctx, "sto", history.Days)
		require.NoError(t, err)
		labeled, err := series.WithFields(fields)
		require.NoError(t, err)
		assert.Equal(t, []float64{80}, labeled.Column("_boot"))
		mnt := labeled.Column("_mnt")
		require.Len(t, mnt, 1)
		assert.True(t, math.IsNaN(mnt[0]))
	})

	t.Run("weeks has another column order", func(t *testing.T) {
		series, err := f.FetchHistory(ctx, "sto", history.Weeks)
		require.NoError(t, err)
		labeled, err := series.WithFields(fields)
		require.NoError(t, err)
		assert.Equal(t, []float64{70}, labeled.Column("_boot"))
		assert.Equal(t, []float64{22}, labeled.Column("_mnt"))
		assert.Equal(t, []float64{30}, labeled.Column("_"))
	})
}

func TestChartData_StoreFailure(t *testing.T) {
	log := logger.NewBufferLogger()
	s := New(&fakeSource{rep: sampleReport()}, brokenStore{}, log)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := postChart(t, srv.URL, url.Values{"data_set": {"cpu"}, "data_needed": {"history"}})
	assert.Equal(t, map[string]interface{}{"success": false, "data": MsgSQLFailed}, body)
	assert.True(t, log.HasLevel(logger.LevelError))
}

func TestMetrics(t *testing.T) {
	srv, _, s := newBackend(t, &fakeSource{rep: sampleReport()})

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + api.ReportPath)
		require.NoError(t, err)
		resp.Body.Close()
	}
	s.ObserveRecord(history.Days, 5, nil)

	resp, err := http.Get(srv.URL + MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `whm_http_requests_total{code="200",handler="getReport",method="get"} 2`)
	assert.Contains(t, text, `whm_report_collections_total{result="ok"} 2`)
	assert.Contains(t, text, `whm_recorded_rows_total{scope="days"} 5`)
	assert.True(t, strings.Contains(text, "whm_http_request_duration_seconds_bucket"))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := New(&fakeSource{rep: sampleReport()}, brokenStore{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	s := New(&fakeSource{rep: sampleReport()}, brokenStore{}, nil)
	err := s.ListenAndServe(context.Background(), "256.0.0.1:bad")
	require.Error(t, err)
}
