package sshutil

import "context"

// Executor runs shell commands on a remote host.
// Both the real Client and the mock in sshutil/testing satisfy it.
type Executor interface {
	// Run executes cmd and returns its combined stdout and stderr.
	// A non-zero exit code with nil error means the command ran but failed.
	// Exit code is -1 if the command couldn't be executed at all.
	Run(ctx context.Context, cmd string) (output []byte, exitCode int, err error)

	// Host returns the original host/alias used to connect.
	Host() string

	// Close closes the connection.
	Close() error
}
