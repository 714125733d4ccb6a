package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "probe")
	exists, err := FileExists(filePath)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o600))
	exists, err = FileExists(filePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplaceTildeInDir(t *testing.T) {
	// Paths without a tilde pass through untouched.
	dir, err := ReplaceTildeInDir("/tmp/predictions.bin")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/predictions.bin", dir)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	dir, err = ReplaceTildeInDir("~/predictions.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "predictions.bin"), dir)

	dir, err = ReplaceTildeInDir("~")
	require.NoError(t, err)
	assert.Equal(t, home, dir)
}
