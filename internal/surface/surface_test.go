package surface

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
)

func init() {
	color.NoColor = true
}

func TestShowResultIndicator(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, nil)

	term.ShowResultIndicator(true)
	term.ShowResultIndicator(false)
	assert.Equal(t, "✓\n✗\n", buf.String())
}

func TestOpenManualUI(t *testing.T) {
	i18n.SetLanguage("en")

	t.Run("interactive", func(t *testing.T) {
		var buf bytes.Buffer
		launched := 0
		term := NewTerminal(&buf, func(context.Context) error { launched++; return nil },
			WithTerminalCheck(func() bool { return true }))

		term.OpenManualUI(context.Background())
		assert.Equal(t, 1, launched)
		assert.Empty(t, buf.String())
	})

	t.Run("not_a_terminal", func(t *testing.T) {
		var buf bytes.Buffer
		launched := 0
		term := NewTerminal(&buf, func(context.Context) error { launched++; return nil },
			WithTerminalCheck(func() bool { return false }))

		term.OpenManualUI(context.Background())
		assert.Zero(t, launched)
		assert.Contains(t, buf.String(), "hooky popup")
	})

	t.Run("no_launcher", func(t *testing.T) {
		var buf bytes.Buffer
		NewTerminal(&buf, nil, WithTerminalCheck(func() bool { return true })).OpenManualUI(context.Background())
		assert.Contains(t, buf.String(), "hooky popup")
	})

	t.Run("launcher_error", func(t *testing.T) {
		var buf bytes.Buffer
		core, logs := observer.New(zapcore.WarnLevel)
		term := NewTerminal(&buf, func(context.Context) error { return errors.New("tty gone") },
			WithTerminalCheck(func() bool { return true }), WithLogger(zap.New(core)))

		term.OpenManualUI(context.Background())
		assert.Contains(t, buf.String(), "tty gone")
		assert.Equal(t, 1, logs.FilterMessage("manual UI failed").Len())
	})
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, shown := r.Indicator()
	assert.False(t, shown)
	assert.False(t, r.ManualUIRequested())

	r.ShowResultIndicator(false)
	r.ShowResultIndicator(true)
	r.OpenManualUI(context.Background())

	ok, shown := r.Indicator()
	assert.True(t, shown)
	assert.True(t, ok)
	assert.True(t, r.ManualUIRequested())
}
