package ui

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/whm/pkg/sshutil"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestUsageColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{0, ColorSuccess},
		{59.9, ColorSuccess},
		{60, ColorWarning},
		{79, ColorWarning},
		{80, ColorError},
		{100, ColorError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UsageColor(tt.percent), "percent %v", tt.percent)
	}
}

func TestProgress(t *testing.T) {
	t.Run("done", func(t *testing.T) {
		var buf strings.Builder
		p := StartProgress("Fetching report", &buf)
		assert.Equal(t, ProgressRunning, p.State())
		time.Sleep(3 * progressFrames.FPS)
		p.Done(nil)

		assert.Equal(t, ProgressDone, p.State())
		out := buf.String()
		assert.Contains(t, out, "Fetching report...")
		assert.Contains(t, out, SymbolSuccess+" Fetching report")
		assert.True(t, strings.HasSuffix(out, "s\n"))
	})

	t.Run("failed", func(t *testing.T) {
		var buf strings.Builder
		p := StartProgress("Dialing", &buf)
		p.Done(errors.New("refused"))
		assert.Equal(t, ProgressFailed, p.State())
		assert.Contains(t, buf.String(), SymbolFail+" Dialing")
	})

	t.Run("done twice", func(t *testing.T) {
		var buf strings.Builder
		p := StartProgress("x", &buf)
		p.Done(nil)
		p.Done(errors.New("late"))
		assert.Equal(t, ProgressDone, p.State())
		assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	})
}

func TestWithProgress(t *testing.T) {
	var buf strings.Builder
	err := WithProgress(&buf, "Loading", func() error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.Contains(t, buf.String(), SymbolFail+" Loading")

	called := false
	require.NoError(t, WithProgress(nil, "quiet", func() error { called = true; return nil }))
	assert.True(t, called)
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, "0.05s", elapsed(50*time.Millisecond))
	assert.Equal(t, "1.2s", elapsed(1200*time.Millisecond))
}

func TestRenderSimpleTable(t *testing.T) {
	assert.Empty(t, RenderSimpleTable([]TableColumn{{Title: "Mount"}}, nil))

	out := RenderSimpleTable(
		[]TableColumn{{Title: "Mount"}, {Title: "Use %"}},
		[][]string{{"/", "75"}, {"/srv/data", "12"}},
	)
	assert.Contains(t, out, "Mount")
	assert.Contains(t, out, "/srv/data")
	assert.Contains(t, out, "75")
}

func TestHostPickerModel(t *testing.T) {
	hosts := []sshutil.HostEntry{
		{Alias: "nas", Hostname: "10.0.0.5", User: "root"},
		{Alias: "pi", Hostname: "raspberrypi.local"},
	}

	t.Run("enter selects the first host", func(t *testing.T) {
		m := NewHostPickerModel(hosts)
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		picked := next.(HostPickerModel)
		require.NotNil(t, picked.Selected())
		assert.Equal(t, "nas", picked.Selected().Alias)
		assert.Empty(t, picked.View())
	})

	t.Run("m asks for manual entry", func(t *testing.T) {
		m := NewHostPickerModel(hosts)
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
		picked := next.(HostPickerModel)
		assert.True(t, picked.ManualEntry())
		assert.Nil(t, picked.Selected())
	})

	t.Run("esc cancels", func(t *testing.T) {
		m := NewHostPickerModel(hosts)
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		picked := next.(HostPickerModel)
		assert.False(t, picked.ManualEntry())
		assert.Nil(t, picked.Selected())
	})

	t.Run("items filter on hostname and user", func(t *testing.T) {
		assert.Equal(t, "nas 10.0.0.5 root", hostItem{host: hosts[0]}.FilterValue())
	})

	t.Run("no hosts skips the picker", func(t *testing.T) {
		h, cancelled, err := PickHostWithIO(nil, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, h)
		assert.False(t, cancelled)
	})
}
