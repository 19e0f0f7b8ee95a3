package collect

import (
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/pkg/sshutil"
)

// Runner runs a shell command and returns its combined output.
// A non-zero exit code with nil error means the command ran but failed.
type Runner interface {
	Run(ctx context.Context, cmd string) (output []byte, exitCode int, err error)
}

// LocalRunner runs commands through the local shell.
type LocalRunner struct {
	// Shell defaults to $SHELL, then /bin/sh.
	Shell string
}

// NewLocalRunner returns a runner for this host.
func NewLocalRunner() *LocalRunner {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &LocalRunner{Shell: shell}
}

// Run interprets cmd with the shell, so pipes work.
func (r *LocalRunner) Run(ctx context.Context, cmd string) ([]byte, int, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	out, err := exec.CommandContext(ctx, shell, "-c", cmd).CombinedOutput()
	if ctx.Err() != nil {
		return out, -1, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return out, exitErr.ExitCode(), nil
		}
		return out, -1, errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't run the command locally",
			"Make sure the command exists and is executable.")
	}
	return out, 0, nil
}

// DialFunc opens an SSH connection.
type DialFunc func(host string, timeout time.Duration) (sshutil.Executor, error)

// SSHRunner runs commands on a remote host. It dials on first use and
// redials after the connection breaks.
type SSHRunner struct {
	host    string
	timeout time.Duration
	dial    DialFunc
	log     logger.Logger

	mu     sync.Mutex
	client sshutil.Executor
}

// NewSSHRunner returns a runner for host, which may be an SSH config alias.
func NewSSHRunner(host string, timeout time.Duration, log logger.Logger) *SSHRunner {
	return NewSSHRunnerWithDialer(host, timeout, func(host string, timeout time.Duration) (sshutil.Executor, error) {
		return sshutil.Dial(host, timeout)
	}, log)
}

// NewSSHRunnerWithDialer is NewSSHRunner with a custom dialer.
func NewSSHRunnerWithDialer(host string, timeout time.Duration, dial DialFunc, log logger.Logger) *SSHRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &SSHRunner{host: host, timeout: timeout, dial: dial, log: log}
}

// Run executes cmd on the remote host.
func (r *SSHRunner) Run(ctx context.Context, cmd string) ([]byte, int, error) {
	client, err := r.connect()
	if err != nil {
		return nil, -1, err
	}

	out, code, err := client.Run(ctx, cmd)
	if err != nil && ctx.Err() == nil && errors.IsCode(err, errors.ErrSSH) {
		r.log.Warn("connection to %s broke, will redial: %s", r.host, errors.Summarize(err))
		r.drop(client)
	}
	return out, code, err
}

func (r *SSHRunner) connect() (sshutil.Executor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	client, err := r.dial(r.host, r.timeout)
	if err != nil {
		return nil, err
	}
	r.log.Debug("connected to %s", r.host)
	r.client = client
	return client, nil
}

func (r *SSHRunner) drop(client sshutil.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == client {
		r.client.Close()
		r.client = nil
	}
}

// Close closes the connection, if any.
func (r *SSHRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
