package util

import "testing"

func TestOrDefault(t *testing.T) {
	tests := []struct {
		input, def, expected string
	}{
		{"Debian", "-", "Debian"},
		{"", "-", "-"},
		{"   ", "-", "-"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := OrDefault(tt.input, tt.def); got != tt.expected {
			t.Errorf("OrDefault(%q, %q) = %q, want %q", tt.input, tt.def, got, tt.expected)
		}
	}
}

func TestJoinOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		items    []string
		expected string
	}{
		{"nil", nil, "(none)"},
		{"empty", []string{}, "(none)"},
		{"one", []string{"user"}, "user"},
		{"many", []string{"user", "system", "idle"}, "user, system, idle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinOrDefault(tt.items, "(none)"); got != tt.expected {
				t.Errorf("JoinOrDefault(%v) = %q, want %q", tt.items, got, tt.expected)
			}
		})
	}
}
