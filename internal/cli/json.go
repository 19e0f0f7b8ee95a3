package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"strings"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/pkg/sshutil"
)

// JSONEnvelope is the shape of every --json response.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError is the failure half of a JSONEnvelope.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Codes reported in JSONError.Code.
const (
	ErrCodeConfigNotFound     = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeBadData            = "BAD_DATA"
	ErrCodeStoreFailed        = "STORE_FAILED"
	ErrCodeSSHTimeout         = "SSH_TIMEOUT"
	ErrCodeSSHHostKey         = "SSH_HOST_KEY"
	ErrCodeSSHKeyEncrypted    = "SSH_KEY_ENCRYPTED"
	ErrCodeSSHConnectionFail  = "SSH_CONNECTION_FAILED"
	ErrCodeCommandFailed      = "COMMAND_FAILED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeUnknown            = "UNKNOWN"
)

// WriteJSONSuccess writes {"success": true, "data": data}.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONError writes a failure envelope with an explicit code.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	})
}

// WriteJSONFromError writes the failure envelope for err.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON classifies err. Deadlines are TIMEOUT regardless of wrapping;
// *errors.Error values keep their message and suggestion.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return &JSONError{
			Code:       ErrCodeTimeout,
			Message:    errors.Summarize(err),
			Suggestion: "Raise server.timeout in .whm.yaml",
		}
	}

	var whmErr *errors.Error
	if stderrors.As(err, &whmErr) {
		out := &JSONError{
			Code:       mapErrorCode(whmErr),
			Message:    whmErr.Message,
			Suggestion: whmErr.Suggestion,
		}
		if whmErr.Cause != nil {
			out.Details = map[string]interface{}{"cause": errors.Summarize(whmErr.Cause)}
		}
		return out
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// envelopeCodes maps the codes that need no further inspection.
var envelopeCodes = map[string]string{
	errors.ErrTransport: ErrCodeBackendUnreachable,
	errors.ErrData:      ErrCodeBadData,
	errors.ErrStore:     ErrCodeStoreFailed,
	errors.ErrExec:      ErrCodeCommandFailed,
}

func mapErrorCode(e *errors.Error) string {
	if code, ok := envelopeCodes[e.Code]; ok {
		return code
	}
	switch e.Code {
	case errors.ErrConfig:
		if msg := strings.ToLower(e.Message); strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrSSH:
		return sshErrorCode(e)
	}
	return ErrCodeUnknown
}

func sshErrorCode(e *errors.Error) string {
	var encrypted *sshutil.EncryptedKeyError
	if stderrors.As(e, &encrypted) {
		return ErrCodeSSHKeyEncrypted
	}
	var mismatch *sshutil.HostKeyMismatchError
	if stderrors.As(e, &mismatch) || strings.Contains(strings.ToLower(e.Message), "host key") {
		return ErrCodeSSHHostKey
	}
	var netErr net.Error
	if stderrors.As(e, &netErr) && netErr.Timeout() {
		return ErrCodeSSHTimeout
	}
	return ErrCodeSSHConnectionFail
}
