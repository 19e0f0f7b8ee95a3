// Package api is the HTTP client of the whm backend.
//
// Two endpoints exist: GET /getReport returns a full report snapshot, and
// POST /chart_data answers either the field order (data_needed=keys) or the
// recorded rows (data_needed=history) of one history table.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/report"
)

const (
	// DefaultTimeout bounds a single request. A report collection on a
	// loaded host can take several seconds.
	DefaultTimeout = 30 * time.Second

	ReportPath = "/getReport"
	ChartPath  = "/chart_data"

	NeedKeys    = "keys"
	NeedHistory = "history"
)

// ReportResponse is the body of GET /getReport.
type ReportResponse struct {
	Reported bool           `json:"reported"`
	Report   *report.Report `json:"report"`
}

// ChartResponse is the body of POST /chart_data. On failure Data holds a
// message string instead of rows.
type ChartResponse struct {
	Success bool            `json:"success"`
	Keys    []string        `json:"keys,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message returns the failure text carried in Data, if any.
func (r *ChartResponse) Message() string {
	var msg string
	if err := json.Unmarshal(r.Data, &msg); err != nil {
		return ""
	}
	return msg
}

// Client talks to one backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid server url %q", baseURL),
			"Set server.url to something like http://localhost:5000")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchReport implements report.Fetcher.
func (c *Client) FetchReport(ctx context.Context) (*report.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ReportPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Couldn't build the report request")
	}
	req.Header.Set("Accept", "application/json")

	var resp ReportResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if !resp.Reported || resp.Report == nil {
		return nil, errors.New(errors.ErrTransport,
			"The backend did not return a report",
			"Check the server log for collection errors")
	}
	return resp.Report, nil
}

// ChartKeys asks for the field order of table <dataSet>_<scale>.
func (c *Client) ChartKeys(ctx context.Context, dataSet, scale string) (*ChartResponse, error) {
	return c.chart(ctx, dataSet, scale, NeedKeys)
}

// ChartHistory asks for the recorded rows of table <dataSet>_<scale>.
func (c *Client) ChartHistory(ctx context.Context, dataSet, scale string) (*ChartResponse, error) {
	return c.chart(ctx, dataSet, scale, NeedHistory)
}

func (c *Client) chart(ctx context.Context, dataSet, scale, needed string) (*ChartResponse, error) {
	form := url.Values{}
	form.Set("data_set", dataSet)
	form.Set("scale", scale)
	form.Set("data_needed", needed)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChartPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "Couldn't build the chart request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var resp ChartResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends req and decodes a JSON body into out. Context cancellation is
// returned as the bare context error so callers can tell it apart from a
// transport failure.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Couldn't reach %s", c.baseURL),
			"Check that 'whm serve' is running and server.url is correct")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(errors.ErrTransport,
			fmt.Sprintf("%s %s returned %s", req.Method, req.URL.Path, resp.Status),
			strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Malformed response from %s", req.URL.Path), "")
	}
	return nil
}
