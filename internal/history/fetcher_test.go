package history

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/api"
)

type stubChartClient struct {
	keys    *api.ChartResponse
	history *api.ChartResponse
	err     error

	scales []string
}

func (s *stubChartClient) ChartKeys(ctx context.Context, dataSet, scale string) (*api.ChartResponse, error) {
	s.scales = append(s.scales, scale)
	return s.keys, s.err
}

func (s *stubChartClient) ChartHistory(ctx context.Context, dataSet, scale string) (*api.ChartResponse, error) {
	s.scales = append(s.scales, scale)
	return s.history, s.err
}

func TestBackendFetcher_FieldOrder(t *testing.T) {
	client := &stubChartClient{keys: &api.ChartResponse{Success: true, Keys: []string{"used", "free"}}}
	f := NewBackendFetcher(client, nil)

	keys, err := f.FetchFieldOrder(context.Background(), "mem_Mem")
	require.NoError(t, err)
	assert.Equal(t, []string{"used", "free"}, keys)
	assert.Equal(t, []string{"hours"}, client.scales)
}

func TestBackendFetcher_EmptyResults(t *testing.T) {
	tests := []struct {
		name string
		resp *api.ChartResponse
	}{
		{"missing table", &api.ChartResponse{Success: false, Data: json.RawMessage(`"Table does not exist."`)}},
		{"no rows", &api.ChartResponse{Success: true, Data: json.RawMessage(`[]`)}},
		{"no data field", &api.ChartResponse{Success: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewBackendFetcher(&stubChartClient{history: tt.resp, keys: tt.resp}, nil)

			series, err := f.FetchHistory(context.Background(), "cpu", Weeks)
			require.NoError(t, err)
			assert.True(t, series.Empty())
			assert.Equal(t, Weeks, series.Scope)
		})
	}
}

func TestBackendFetcher_History(t *testing.T) {
	client := &stubChartClient{history: &api.ChartResponse{
		Success: true,
		Keys:    []string{"idle", "user", "system"},
		Data:    json.RawMessage(`[["2024-03-01 10:00:00", 85, 10, 5]]`),
	}}
	f := NewBackendFetcher(client, nil)

	series, err := f.FetchHistory(context.Background(), "cpu", Days)
	require.NoError(t, err)
	require.Len(t, series.Rows, 1)
	assert.Equal(t, []float64{85, 10, 5}, series.Rows[0].Values)
	assert.Equal(t, []string{"idle", "user", "system"}, series.Columns)
	assert.Equal(t, []string{"days"}, client.scales)

	labeled, err := series.WithFields([]string{"user", "system", "idle"})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 5, 85}, labeled.Rows[0].Values)
}

func TestBackendFetcher_HistoryWithoutColumns(t *testing.T) {
	client := &stubChartClient{history: &api.ChartResponse{
		Success: true,
		Data:    json.RawMessage(`[["2024-03-01 10:00:00", 10, 5]]`),
	}}
	series, err := NewBackendFetcher(client, nil).FetchHistory(context.Background(), "cpu", Hours)
	require.NoError(t, err)
	assert.Nil(t, series.Columns)

	_, err = series.WithFields([]string{"user", "system", "idle"})
	assert.Error(t, err, "rows are matched by position when the backend names no columns")
}

func TestBackendFetcher_TransportError(t *testing.T) {
	f := NewBackendFetcher(&stubChartClient{err: fmt.Errorf("connection refused")}, nil)

	_, err := f.FetchHistory(context.Background(), "cpu", Hours)
	assert.Error(t, err)

	_, err = f.FetchFieldOrder(context.Background(), "cpu")
	assert.Error(t, err)
}
