// Package errors provides the structured error type used across whm.
//
// Every error that reaches a user carries a code, a one-line description of
// what failed, the underlying cause, and a suggestion for what to do next.
package errors

import (
	"errors"
	"strings"
)

// Codes group failures by what the user has to fix.
const (
	ErrConfig    = "CONFIG"
	ErrTransport = "TRANSPORT" // backend unreachable or answered with a failure
	ErrData      = "DATA"      // payload or report data failed validation
	ErrStore     = "STORE"
	ErrSSH       = "SSH"
	ErrExec      = "EXEC"
)

// Error is a failure a user can act on. Its Error text reads
//
//	✗ <what failed>
//
//	  <cause>
//
//	  <what to do about it>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New returns an Error with no underlying cause.
func New(code, message, suggestion string) *Error {
	return WrapWithCode(nil, code, message, suggestion)
}

// Wrap attaches message to err as a TRANSPORT failure.
func Wrap(err error, message string) *Error {
	return WrapWithCode(err, ErrTransport, message, "")
}

// WrapWithCode attaches message, code and suggestion to err.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion, Cause: err}
}

func (e *Error) Error() string {
	parts := []string{"✗ " + e.Message}
	if e.Cause != nil {
		parts = append(parts, "  "+e.Cause.Error())
	}
	if e.Suggestion != "" {
		parts = append(parts, "  "+e.Suggestion)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Summary returns the message and cause on a single line, for places like an
// alert box where the multi-line form doesn't fit.
func (e *Error) Summary() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + firstLine(e.Cause.Error())
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err wraps an *Error carrying code.
func IsCode(err error, code string) bool {
	var whmErr *Error
	return errors.As(err, &whmErr) && whmErr.Code == code
}

// Summarize returns a one-line description of any error.
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	var whmErr *Error
	if errors.As(err, &whmErr) {
		return whmErr.Summary()
	}
	return firstLine(err.Error())
}

func firstLine(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "✗"))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
