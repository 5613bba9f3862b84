// Package surface is the user-facing end of a trigger: a result indicator
// and a way to open the manual UI.
package surface

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
)

// Indicator marks.
const (
	SuccessMark = "✓"
	FailureMark = "✗"
)

// Launcher opens the manual UI and blocks until it closes.
type Launcher func(ctx context.Context) error

// Terminal prints the indicator and runs the popup in the current terminal.
type Terminal struct {
	out        io.Writer
	launch     Launcher
	isTerminal func() bool
	log        *zap.Logger
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithTerminalCheck overrides the interactive-terminal check.
func WithTerminalCheck(fn func() bool) TerminalOption {
	return func(t *Terminal) { t.isTerminal = fn }
}

// WithLogger sets the logger for launcher failures.
func WithLogger(l *zap.Logger) TerminalOption {
	return func(t *Terminal) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTerminal creates a terminal surface writing to out.
func NewTerminal(out io.Writer, launch Launcher, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:        out,
		launch:     launch,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OpenManualUI runs the launcher when stdin is a terminal; otherwise it
// prints how to open the popup.
func (t *Terminal) OpenManualUI(ctx context.Context) {
	if t.launch == nil || !t.isTerminal() {
		fmt.Fprintln(t.out, i18n.T("manual_ui_unavailable"))
		return
	}
	if err := t.launch(ctx); err != nil {
		t.log.Warn("manual UI failed", zap.Error(err))
		fmt.Fprintf(t.out, "%s: %v\n", i18n.T("error"), err)
	}
}

// ShowResultIndicator prints a green check or a red cross.
func (t *Terminal) ShowResultIndicator(success bool) {
	if success {
		color.New(color.FgGreen, color.Bold).Fprintln(t.out, SuccessMark)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintln(t.out, FailureMark)
}

// Recorder remembers what was asked of it. The daemon returns this to the
// HTTP caller instead of acting on it. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	manualUI   int
	indicators []bool
}

// OpenManualUI records the request.
func (r *Recorder) OpenManualUI(context.Context) {
	r.mu.Lock()
	r.manualUI++
	r.mu.Unlock()
}

// ShowResultIndicator records the indicator state.
func (r *Recorder) ShowResultIndicator(success bool) {
	r.mu.Lock()
	r.indicators = append(r.indicators, success)
	r.mu.Unlock()
}

// ManualUIRequested reports whether OpenManualUI was called.
func (r *Recorder) ManualUIRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manualUI > 0
}

// Indicator returns the last indicator state, if any was shown.
func (r *Recorder) Indicator() (success bool, shown bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.indicators) == 0 {
		return false, false
	}
	return r.indicators[len(r.indicators)-1], true
}
