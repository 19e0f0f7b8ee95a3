package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/pkg/sshutil"
)

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) JSONEnvelope {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	return env
}

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]string{"key": "value"}))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestWriteJSONSuccess_NilData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, nil))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
	assert.NotContains(t, buf.String(), `"data"`)
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSONError(&buf, ErrCodeSSHTimeout, "Connection timed out", "Check network connectivity",
		map[string]string{"host": "nas"})
	require.NoError(t, err)

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeSSHTimeout, env.Error.Code)
	assert.Equal(t, "Connection timed out", env.Error.Message)
	assert.Equal(t, "Check network connectivity", env.Error.Suggestion)
	details, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "nas", details["host"])
}

func TestWriteJSONFromError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteJSONFromError(&buf, nil))
		env := decodeEnvelope(t, &buf)
		assert.False(t, env.Success)
		assert.Nil(t, env.Error)
	})

	t.Run("generic error", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("something went wrong")))
		env := decodeEnvelope(t, &buf)
		require.NotNil(t, env.Error)
		assert.Equal(t, ErrCodeUnknown, env.Error.Code)
		assert.Equal(t, "something went wrong", env.Error.Message)
	})

	t.Run("wrapped structured error", func(t *testing.T) {
		var buf bytes.Buffer
		inner := errors.New(errors.ErrSSH, "Connection refused", "Check if SSH server is running")
		require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("collect: %w", inner)))
		env := decodeEnvelope(t, &buf)
		require.NotNil(t, env.Error)
		assert.Equal(t, ErrCodeSSHConnectionFail, env.Error.Code)
		assert.Equal(t, "Check if SSH server is running", env.Error.Suggestion)
	})
}

func TestErrorToJSON_Codes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"config not found", errors.New(errors.ErrConfig, "Config file not found", ""), ErrCodeConfigNotFound},
		{"config couldn't find", errors.New(errors.ErrConfig, "Couldn't find config", ""), ErrCodeConfigNotFound},
		{"config invalid", errors.New(errors.ErrConfig, "server.url must be an http(s) URL", ""), ErrCodeConfigInvalid},
		{"transport", errors.Wrap(fmt.Errorf("connection refused"), "Couldn't reach the backend"), ErrCodeBackendUnreachable},
		{"data", errors.New(errors.ErrData, "Malformed unit \"12Q\"", ""), ErrCodeBadData},
		{"store", errors.New(errors.ErrStore, "Couldn't open the history database", ""), ErrCodeStoreFailed},
		{"exec", errors.New(errors.ErrExec, "Command failed", ""), ErrCodeCommandFailed},
		{"ssh generic", errors.New(errors.ErrSSH, "SSH handshake didn't go through", ""), ErrCodeSSHConnectionFail},
		{"ssh host key message", errors.New(errors.ErrSSH, "host key mismatch for nas:22: server sent ssh-ed25519 key", ""), ErrCodeSSHHostKey},
		{"ssh host key cause", errors.WrapWithCode(&sshutil.HostKeyMismatchError{Hostname: "nas:22"}, errors.ErrSSH, "Dial failed", ""), ErrCodeSSHHostKey},
		{"ssh encrypted key", errors.WrapWithCode(&sshutil.EncryptedKeyError{Path: "~/.ssh/id_ed25519"}, errors.ErrSSH, "Couldn't set up SSH", ""), ErrCodeSSHKeyEncrypted},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"unknown internal code", errors.New("OTHER", "odd", ""), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorToJSON(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestErrorToJSON_CauseDetails(t *testing.T) {
	err := errors.WrapWithCode(fmt.Errorf("dial tcp 127.0.0.1:5000: connection refused"),
		errors.ErrTransport, "Couldn't reach the backend", "Start it with 'whm serve'")

	got := ErrorToJSON(err)
	require.NotNil(t, got)
	details, ok := got.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dial tcp 127.0.0.1:5000: connection refused", details["cause"])
	assert.Equal(t, "Start it with 'whm serve'", got.Suggestion)
	assert.Nil(t, ErrorToJSON(nil))
}
