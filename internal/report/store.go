package report

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
)

// Fetcher retrieves a fresh report from the backend.
type Fetcher interface {
	FetchReport(ctx context.Context) (*Report, error)
}

// Store owns the single live report of a client session.
type Store struct {
	mu      sync.Mutex
	fetcher Fetcher
	cache   SessionCache
	current *Report
	log     logger.Logger
}

// NewStore creates a store. A nil cache keeps the report in memory only.
func NewStore(fetcher Fetcher, cache SessionCache, log logger.Logger) *Store {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Store{fetcher: fetcher, cache: cache, log: log}
}

// Ensure returns the live report, loading it from the session cache or the
// backend as needed. reinit is true when the report had to be fetched: the
// caller must rebuild every view from scratch rather than patch the old ones.
func (s *Store) Ensure(ctx context.Context) (r *Report, reinit bool, err error) {
	s.mu.Lock()
	if s.current != nil {
		r = s.current
		s.mu.Unlock()
		return r, false, nil
	}
	s.mu.Unlock()

	if cached := s.loadCached(); cached != nil {
		s.mu.Lock()
		s.current = cached
		s.mu.Unlock()
		return cached, false, nil
	}

	r, err = s.Refresh(ctx)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Refresh fetches a new report and replaces the live one. On failure the
// live report and the cache are left as they were.
func (s *Store) Refresh(ctx context.Context) (*Report, error) {
	r, err := s.fetcher.FetchReport(ctx)
	if err != nil {
		var whmErr *errors.Error
		if stderrors.As(err, &whmErr) || stderrors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errors.Wrap(err, "Couldn't fetch the report")
	}

	data, err := Encode(r)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrData, "Couldn't encode the report", "")
	}
	if err := s.cache.Set(CacheKey, data); err != nil {
		s.log.Warn("caching report: %v", err)
	}

	s.mu.Lock()
	s.current = r
	s.mu.Unlock()
	s.log.Debug("report refreshed (demo=%t)", r.Demo)
	return r, nil
}

// Current returns the live report, or nil.
func (s *Store) Current() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Clear drops the live report and empties the session cache.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return s.cache.Clear()
}

func (s *Store) loadCached() *Report {
	data, ok, err := s.cache.Get(CacheKey)
	if err != nil {
		s.log.Warn("reading cached report: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	r, err := Decode(data)
	if err != nil {
		s.log.Warn("ignoring corrupt cached report: %v", err)
		return nil
	}
	return r
}
