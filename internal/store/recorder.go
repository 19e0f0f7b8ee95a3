package store

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// Source produces reports. Recording only needs a partial one.
type Source interface {
	Collect(ctx context.Context, full bool) (*report.Report, error)
}

// recordedKinds are the groups with history tables.
var recordedKinds = []report.Kind{
	report.KindCPU,
	report.KindMemory,
	report.KindSensors,
	report.KindLogicalVolumes,
}

// DefaultIntervals records each scope once per unit.
var DefaultIntervals = map[history.Scope]time.Duration{
	history.Hours: time.Hour,
	history.Days:  24 * time.Hour,
	history.Weeks: 7 * 24 * time.Hour,
}

// Recorder samples a source on one ticker per scope and appends the
// groups to their tables.
type Recorder struct {
	store     *Store
	source    Source
	log       logger.Logger
	intervals map[history.Scope]time.Duration

	// OnRecord, when set, is called after every pass with the number of
	// rows written and the first error.
	OnRecord func(scope history.Scope, rows int, err error)
}

// NewRecorder creates a recorder. Scopes missing from intervals use
// DefaultIntervals; a non-positive interval disables the scope.
func NewRecorder(st *Store, src Source, intervals map[history.Scope]time.Duration, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.Noop()
	}
	iv := make(map[history.Scope]time.Duration, len(history.Scopes))
	for _, scope := range history.Scopes {
		iv[scope] = DefaultIntervals[scope]
		if d, ok := intervals[scope]; ok {
			iv[scope] = d
		}
	}
	return &Recorder{store: st, source: src, log: log, intervals: iv}
}

// RecordOnce takes one partial report and writes a row per group to the
// tables of scope. A failing group does not stop the others; the first
// error is returned.
func (r *Recorder) RecordOnce(ctx context.Context, scope history.Scope) (int, error) {
	rep, err := r.source.Collect(ctx, false)
	if err != nil {
		r.notify(scope, 0, err)
		return 0, err
	}

	var first error
	written := 0
	for _, kind := range recordedKinds {
		for _, g := range rep.Groups(kind) {
			if err := r.store.Record(ctx, g.Prefix, scope, g.Values); err != nil {
				r.log.Warn("recording %s: %s", TableName(g.Prefix, scope), errors.Summarize(err))
				if first == nil {
					first = err
				}
				continue
			}
			written++
		}
	}
	r.log.Debug("recorded %d %s rows", written, scope)
	r.notify(scope, written, first)
	return written, first
}

func (r *Recorder) notify(scope history.Scope, rows int, err error) {
	if r.OnRecord != nil {
		r.OnRecord(scope, rows, err)
	}
}

// Run records every enabled scope immediately and then on its interval,
// until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, scope := range history.Scopes {
		interval := r.intervals[scope]
		if interval <= 0 {
			r.log.Info("recording %s disabled", scope)
			continue
		}
		wg.Add(1)
		go func(scope history.Scope, interval time.Duration) {
			defer wg.Done()
			r.loop(ctx, scope, interval)
		}(scope, interval)
	}
	wg.Wait()
}

func (r *Recorder) loop(ctx context.Context, scope history.Scope, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RecordOnce(ctx, scope); err != nil && ctx.Err() == nil {
			r.log.Warn("%s pass failed: %s", scope, errors.Summarize(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
