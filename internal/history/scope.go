// Package history reads the recorded time series of a metric group from the
// backend. A series is fetched per (prefix, scope) and never cached across
// scope changes.
package history

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/whm/internal/errors"
)

// Scope is the time resolution of a history table.
type Scope int

const (
	Hours Scope = iota
	Days
	Weeks
)

// Scopes lists every scope in display order.
var Scopes = []Scope{Hours, Days, Weeks}

// String returns the wire name used in table names and requests.
func (s Scope) String() string {
	switch s {
	case Hours:
		return "hours"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Label is the short form shown in the scope selector.
func (s Scope) Label() string {
	switch s {
	case Hours:
		return "Hours"
	case Days:
		return "Days"
	case Weeks:
		return "Weeks"
	default:
		return s.String()
	}
}

// Next returns the following scope, wrapping around.
func (s Scope) Next() Scope {
	return Scopes[(s.index()+1)%len(Scopes)]
}

// Prev returns the preceding scope, wrapping around.
func (s Scope) Prev() Scope {
	return Scopes[(s.index()+len(Scopes)-1)%len(Scopes)]
}

func (s Scope) index() int {
	for i, sc := range Scopes {
		if sc == s {
			return i
		}
	}
	return 0
}

// ParseScope accepts "hours", "days", "weeks" and their first letters.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hours", "hour", "h":
		return Hours, nil
	case "days", "day", "d":
		return Days, nil
	case "weeks", "week", "w":
		return Weeks, nil
	default:
		return Hours, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown scope %q", s),
			"Use one of: hours, days, weeks")
	}
}
