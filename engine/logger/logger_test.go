package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Infof("info %d", 1)
		l.With("k", "v").Debugf("nested")
	})
	assert.Nil(t, l.With("k", "v"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, slog.LevelInfo).With("component", "octree")

	l.Debug("hidden")
	l.Infof("resized to %d levels", 8)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "resized to 8 levels")
	assert.Contains(t, out, "component=octree")
}
