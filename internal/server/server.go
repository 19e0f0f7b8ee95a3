// Package server is the whm backend. It serves fresh reports, the recorded
// history tables and its own Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rileyhilliard/whm/internal/api"
	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
	"github.com/rileyhilliard/whm/internal/store"
)

// MetricsPath serves the backend's own metrics.
const MetricsPath = "/metrics"

// Failure texts of POST /chart_data. Clients treat any of them as an empty
// result.
const (
	MsgNoTable   = "Table does not exist."
	MsgSQLFailed = "SQL failed to run."
	MsgBadNeed   = "Unknown data_needed."
)

// ReportSource collects a full report.
type ReportSource interface {
	FetchReport(ctx context.Context) (*report.Report, error)
}

// ChartStore reads history tables.
type ChartStore interface {
	Keys(ctx context.Context, table string) ([]string, error)
	// Table returns the columns of table and its rows in that layout.
	Table(ctx context.Context, table string) ([]string, []history.Row, error)
}

// Server handles the backend endpoints.
type Server struct {
	source ReportSource
	store  ChartStore
	log    logger.Logger

	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	collections *prometheus.CounterVec
	recorded    *prometheus.CounterVec
	handler     http.Handler
}

// New creates a server. Metrics go to a registry of its own so several
// servers can live in one process.
func New(source ReportSource, st ChartStore, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	s := &Server{
		source:   source,
		store:    st,
		log:      log,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whm_http_requests_total",
			Help: "HTTP requests by handler, method and status code.",
		}, []string{"handler", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "whm_http_request_duration_seconds",
			Help:    "HTTP request latency by handler.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"handler", "method", "code"}),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whm_report_collections_total",
			Help: "Report collections by result.",
		}, []string{"result"}),
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whm_recorded_rows_total",
			Help: "History rows written by scope.",
		}, []string{"scope"}),
	}
	s.registry.MustRegister(
		s.requests, s.duration, s.collections, s.recorded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle(api.ReportPath, s.instrument("getReport", http.HandlerFunc(s.handleReport)))
	mux.Handle(api.ChartPath, s.instrument("chart_data", http.HandlerFunc(s.handleChart)))
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	s.handler = mux
	return s
}

func (s *Server) instrument(name string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerDuration(s.duration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(s.requests.MustCurryWith(labels), h))
}

// Handler returns the HTTP handler of every endpoint.
func (s *Server) Handler() http.Handler { return s.handler }

// Registry returns the server's metrics registry.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// ObserveRecord counts a recorder pass. It has the signature of
// store.Recorder.OnRecord.
func (s *Server) ObserveRecord(scope history.Scope, rows int, err error) {
	s.recorded.WithLabelValues(scope.String()).Add(float64(rows))
	if err != nil {
		s.log.Warn("recording %s: %s", scope, errors.Summarize(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	rep, err := s.source.FetchReport(r.Context())
	if err != nil {
		s.collections.WithLabelValues("error").Inc()
		if r.Context().Err() != nil {
			return
		}
		s.log.Error("collecting report: %s", errors.Summarize(err))
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"reported": false,
			"error":    errors.Summarize(err),
		})
		return
	}
	s.collections.WithLabelValues("ok").Inc()
	s.log.Debug("collected report in %s", time.Since(start).Round(time.Millisecond))

	writeJSON(w, http.StatusOK, api.ReportResponse{Reported: true, Report: rep})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form body", http.StatusBadRequest)
		return
	}

	scale := r.PostForm.Get("scale")
	if scale == "" {
		scale = history.Hours.String()
	}
	table := r.PostForm.Get("data_set") + "_" + scale

	var (
		resp api.ChartResponse
		err  error
	)
	switch r.PostForm.Get("data_needed") {
	case api.NeedKeys:
		resp.Keys, err = s.store.Keys(r.Context(), table)
		if resp.Keys == nil {
			resp.Keys = []string{}
		}
	case api.NeedHistory:
		var rows []history.Row
		resp.Keys, rows, err = s.store.Table(r.Context(), table)
		if err == nil {
			resp.Data, err = history.EncodeRows(rows)
		}
	default:
		writeJSON(w, http.StatusOK, failure(MsgBadNeed))
		return
	}

	switch {
	case err == nil:
		resp.Success = true
		writeJSON(w, http.StatusOK, resp)
	case stderrors.Is(err, store.ErrNoTable), errors.IsCode(err, errors.ErrData):
		s.log.Debug("no table %s: %s", table, errors.Summarize(err))
		writeJSON(w, http.StatusOK, failure(MsgNoTable))
	default:
		if r.Context().Err() != nil {
			return
		}
		s.log.Error("reading %s: %s", table, errors.Summarize(err))
		writeJSON(w, http.StatusOK, failure(MsgSQLFailed))
	}
}

func failure(msg string) map[string]interface{} {
	return map[string]interface{}{"success": false, "data": msg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't listen on "+addr,
			"Pick another address with --listen or backend.listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "Shutdown did not finish cleanly")
	}
	return nil
}
