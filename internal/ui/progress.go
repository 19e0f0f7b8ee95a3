package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// ProgressState is where a Progress line is in its life.
type ProgressState int

const (
	ProgressRunning ProgressState = iota
	ProgressDone
	ProgressFailed
)

// progressFrames borrows the dashboard's spinner family so one-shot commands
// and the TUI animate alike.
var progressFrames = spinner.MiniDot

// Progress animates "label..." on one line of out until Done is called, then
// replaces it with a ✓ or ✗ line carrying the elapsed time.
type Progress struct {
	label   string
	out     io.Writer
	started time.Time
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.Mutex
	state ProgressState
	width int
}

// StartProgress begins animating label on out.
func StartProgress(label string, out io.Writer) *Progress {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Progress{label: label, out: out, started: time.Now(), cancel: cancel}

	p.draw(0)
	p.wg.Add(1)
	go p.loop(ctx)
	return p
}

// WithProgress runs fn behind a Progress line on out. A nil out runs fn
// without any output.
func WithProgress(out io.Writer, label string, fn func() error) error {
	if out == nil {
		return fn()
	}
	p := StartProgress(label, out)
	err := fn()
	p.Done(err)
	return err
}

// Done stops the animation and prints the final line. Only the first call
// has any effect.
func (p *Progress) Done(err error) {
	p.mu.Lock()
	if p.state != ProgressRunning {
		p.mu.Unlock()
		return
	}
	p.state = ProgressDone
	if err != nil {
		p.state = ProgressFailed
	}
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	symbol, color := SymbolSuccess, ColorSuccess
	if err != nil {
		symbol, color = SymbolFail, ColorError
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.erase()
	fmt.Fprintf(p.out, "%s %s %s\n",
		lipgloss.NewStyle().Foreground(color).Render(symbol),
		p.label,
		MutedText(elapsed(time.Since(p.started))))
}

// State reports whether the line is still animating or how it ended.
func (p *Progress) State() ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Progress) loop(ctx context.Context) {
	defer p.wg.Done()
	tick := time.NewTicker(progressFrames.FPS)
	defer tick.Stop()

	for frame := 1; ; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			p.draw(frame)
		}
	}
}

func (p *Progress) draw(frame int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != ProgressRunning {
		return
	}

	glyph := progressFrames.Frames[frame%len(progressFrames.Frames)]
	color := GradientColors[(frame/2)%len(GradientColors)]
	line := lipgloss.NewStyle().Foreground(color).Render(glyph) + " " + p.label + "..."

	p.erase()
	fmt.Fprint(p.out, line)
	p.width = lipgloss.Width(line)
}

// erase blanks the current animation line. Callers hold mu.
func (p *Progress) erase() {
	if p.width == 0 {
		return
	}
	fmt.Fprint(p.out, "\r"+strings.Repeat(" ", p.width)+"\r")
	p.width = 0
}

// elapsed is the short duration shown after a finished line ("0.05s", "1.2s").
func elapsed(d time.Duration) string {
	if s := d.Seconds(); s >= 0.1 {
		return fmt.Sprintf("%.1fs", s)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
