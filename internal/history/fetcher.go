package history

import (
	"context"

	"github.com/rileyhilliard/whm/internal/api"
	"github.com/rileyhilliard/whm/internal/logger"
)

// Fetcher loads field orders and history series.
//
// A table that does not exist yet, or one without rows, is an empty result
// and not an error. Transport failures are TRANSPORT errors; a cancelled
// context returns the context error.
type Fetcher interface {
	FetchFieldOrder(ctx context.Context, prefix string) ([]string, error)
	FetchHistory(ctx context.Context, prefix string, scope Scope) (Series, error)
}

// ChartClient is the slice of the backend API the fetcher needs.
type ChartClient interface {
	ChartKeys(ctx context.Context, dataSet, scale string) (*api.ChartResponse, error)
	ChartHistory(ctx context.Context, dataSet, scale string) (*api.ChartResponse, error)
}

// BackendFetcher implements Fetcher over POST /chart_data.
type BackendFetcher struct {
	client ChartClient
	log    logger.Logger

	// KeyScope is the table consulted for field order; hours fills first.
	// Scopes are recorded independently, so each history response carries
	// its own columns and WithFields matches them by name.
	KeyScope Scope
}

// NewBackendFetcher creates a fetcher backed by client.
func NewBackendFetcher(client ChartClient, log logger.Logger) *BackendFetcher {
	if log == nil {
		log = logger.Noop()
	}
	return &BackendFetcher{client: client, log: log, KeyScope: Hours}
}

// FetchFieldOrder implements Fetcher.
func (f *BackendFetcher) FetchFieldOrder(ctx context.Context, prefix string) ([]string, error) {
	resp, err := f.client.ChartKeys(ctx, prefix, f.KeyScope.String())
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		f.log.Debug("no field order for %s: %s", prefix, resp.Message())
		return nil, nil
	}
	return resp.Keys, nil
}

// FetchHistory implements Fetcher.
func (f *BackendFetcher) FetchHistory(ctx context.Context, prefix string, scope Scope) (Series, error) {
	empty := Series{Scope: scope}

	resp, err := f.client.ChartHistory(ctx, prefix, scope.String())
	if err != nil {
		return empty, err
	}
	if !resp.Success || len(resp.Data) == 0 {
		f.log.Debug("no %s history for %s: %s", scope, prefix, resp.Message())
		return empty, nil
	}

	rows, err := DecodeRows(resp.Data)
	if err != nil {
		return empty, err
	}
	return Series{Scope: scope, Columns: resp.Keys, Rows: rows}, nil
}
