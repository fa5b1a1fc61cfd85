package logger

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{" INFO ", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"Error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestLogrusAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusAdapter(&buf, "info")

	l.Debug("hidden")
	l.Info("Batch confirmed", "signature", "sig-1", "batch", 2)
	l.Warn("odd args", "dangling")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="Batch confirmed"`)
	assert.Contains(t, out, "signature=sig-1")
	assert.Contains(t, out, "batch=2")
	assert.Contains(t, out, "!BADKEY=dangling")
}

func TestLogrusAdapter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusAdapter(&buf, "loud")
	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogAdapterRoutedToZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	RouteSlogToZap(zap.New(core))
	t.Cleanup(func() { InitSlog("INFO") })

	l := NewSlogAdapter("service", "transferd")
	l.Debug("hidden")
	l.Info("Signer connected", "signer", "DELEGATE")
	l.Error("Batch failed")

	require.Equal(t, 1, logs.FilterMessage("Signer connected").Len())
	entry := logs.FilterMessage("Signer connected").All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "transferd", fields["service"])
	assert.Equal(t, "DELEGATE", fields["signer"])
	assert.Zero(t, logs.FilterMessage("hidden").Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestNewZapLogger_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transferd.log")
	zl, err := NewZapLogger(ZapOptions{Level: "not-a-level", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	assert.True(t, zl.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, zl.Core().Enabled(zapcore.DebugLevel))
	zl.Info("hello")
	_ = zl.Sync()
	assert.FileExists(t, path)
}

func TestNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("x")
		l.Debug("x")
		l.Warn("x")
		l.Error("x")
	})
}
