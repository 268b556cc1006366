package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stenoarena.log")
	logger, err := New(path, false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("test created")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"test created"`)
	assert.NotContains(t, string(raw), "hidden")
}

func TestNewVerboseKeepsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stenoarena.log")
	logger, err := New(path, true)
	require.NoError(t, err)

	logger.Debug("tick")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"tick"`)
}

func TestNewWithoutPathIsNop(t *testing.T) {
	logger, err := New("", true)
	require.NoError(t, err)
	logger.Info("dropped")
}
