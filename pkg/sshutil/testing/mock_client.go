// Package testing provides an in-memory sshutil.Executor.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/rileyhilliard/whm/pkg/sshutil"
)

var _ sshutil.Executor = (*MockClient)(nil)

// CommandResponse is the canned result of a command.
type CommandResponse struct {
	Output   []byte
	ExitCode int
	Error    error
}

type rule struct {
	pattern *regexp.Regexp
	resp    CommandResponse
}

// MockClient answers commands from canned responses. Exact matches win
// over patterns; patterns are tried in registration order. Anything else
// exits 127 like a missing command.
type MockClient struct {
	mu     sync.Mutex
	host   string
	exact  map[string]CommandResponse
	rules  []rule
	calls  []string
	closed bool
}

// NewMockClient creates a mock for host.
func NewMockClient(host string) *MockClient {
	return &MockClient{host: host, exact: make(map[string]CommandResponse)}
}

// SetResponse registers the response for an exact command.
func (m *MockClient) SetResponse(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[cmd] = resp
}

// SetOutput is SetResponse for a command that succeeds with output.
func (m *MockClient) SetOutput(cmd, output string) {
	m.SetResponse(cmd, CommandResponse{Output: []byte(output)})
}

// SetPattern registers the response for every command matching pattern.
func (m *MockClient) SetPattern(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{pattern: regexp.MustCompile(pattern), resp: resp})
}

// Run returns the canned response for cmd.
func (m *MockClient) Run(ctx context.Context, cmd string) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, -1, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, -1, errors.New("connection closed")
	}
	m.calls = append(m.calls, cmd)

	if resp, ok := m.exact[cmd]; ok {
		return resp.Output, resp.ExitCode, resp.Error
	}
	for _, r := range m.rules {
		if r.pattern.MatchString(cmd) {
			return r.resp.Output, r.resp.ExitCode, r.resp.Error
		}
	}
	return []byte("sh: command not found\n"), 127, nil
}

// Calls returns every command run so far.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Host returns the host passed to NewMockClient.
func (m *MockClient) Host() string {
	return m.host
}

// Close marks the client closed; later runs fail.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
