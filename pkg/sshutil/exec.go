package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/rileyhilliard/whm/internal/errors"
)

// Run executes cmd in a new session and returns combined stdout and
// stderr. Cancelling ctx kills the remote command.
func (c *Client) Run(ctx context.Context, cmd string) ([]byte, int, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(ssh.SIGKILL)
			session.Close()
		case <-done:
		}
	}()

	err = session.Run(cmd)
	if ctx.Err() != nil {
		return out.Bytes(), -1, ctx.Err()
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return out.Bytes(), exitErr.ExitStatus(), nil
		}
		return out.Bytes(), -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}
	return out.Bytes(), 0, nil
}
