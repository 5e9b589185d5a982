package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, ok = ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestInitRoutesSlogThroughZap(t *testing.T) {
	zl, err := Init("debug", false)
	require.NoError(t, err)
	require.NotNil(t, zl)
	assert.Same(t, zl, Zap())
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}

func TestSlogAdapterWritesToGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := NewSlogAdapterWith(l)

	a.Info("holdings fetched", "chain", "base")
	a.Debug("cache miss")
	a.Warn("price unavailable")
	a.Error("provider failed")

	out := buf.String()
	assert.Contains(t, out, "holdings fetched")
	assert.Contains(t, out, "chain=base")
	assert.Contains(t, out, "cache miss")
	assert.Contains(t, out, "price unavailable")
	assert.Contains(t, out, "provider failed")
}

func TestNopAdapter(t *testing.T) {
	a := NewNopAdapter()
	assert.NotPanics(t, func() {
		a.Info("ignored")
		a.Error("ignored", "error", "x")
	})
}
