package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hero.log")

	log, err := New(Options{Level: "debug", Path: path})
	require.NoError(t, err)

	log.Info("completion recorded")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"completion recorded"`)
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Options{Level: "chatty"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(-1))
	assert.True(t, log.Core().Enabled(0))
}
