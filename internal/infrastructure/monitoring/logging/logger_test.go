package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T, level zapcore.Level) (Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/for/sure/app.log"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, logs := newObservedLogger(t, zapcore.InfoLevel)

	l.Debug("dropped")
	l.Info("certificate issued",
		String("certificate_number", "RA-2025-K3F9QZ21"),
		Int("compliance_score", 70),
		Bool("fallback", true),
		Duration("elapsed", 15*time.Millisecond),
		Strings("domains", []string{"strategy", "governance"}),
		Err(errors.New("llm timeout")),
	)
	l.Warn("slow")
	l.Error("failed")

	require.Equal(t, 3, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "certificate issued", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "RA-2025-K3F9QZ21", ctx["certificate_number"])
	assert.EqualValues(t, 70, ctx["compliance_score"])
	assert.Equal(t, true, ctx["fallback"])
	assert.Equal(t, "llm timeout", ctx["error"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(t, zapcore.DebugLevel)

	child := l.Named("composer").With(String("org", "Acme"))
	child.Info("composed")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "composer", entry.LoggerName)
	assert.Equal(t, "Acme", entry.ContextMap()["org"])
	assert.NoError(t, l.Sync())
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}

func TestDefaultLogger(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, _ := newObservedLogger(t, zapcore.InfoLevel)
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default(), "nil must be ignored")
}
