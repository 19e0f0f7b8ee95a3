// Package util holds small string helpers shared by the collectors and the CLI.
package util

import "strings"

// ShellQuote wraps s in single quotes so a remote shell treats it literally.
func ShellQuote(s string) string {
	// ' becomes '\'' (close quote, escaped quote, reopen)
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
