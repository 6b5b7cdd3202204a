package actions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLauncherName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "moche.sh", LauncherName("/usr/local/bin/moche", "linux"))
	assert.Equal(t, "moche.bat", LauncherName(`C:\tools\moche.exe`, "windows"))
}

func TestWriteLauncher(t *testing.T) {
	t.Parallel()

	t.Run("sh", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path, err := WriteLauncher(dir, "/opt/my tools/moche", "linux")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "moche.sh"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "#!/bin/sh\ncd \"$(dirname \"$0\")\" && exec '/opt/my tools/moche' --from-script \"$@\"\n", string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0100)
	})

	t.Run("bat", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path, err := WriteLauncher(dir, `C:\tools\moche.exe`, "windows")
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "@cd /d \"%~dp0\" && \"C:\\tools\\moche.exe\" --from-script %*\r\n", string(data))
	})
}

func TestIsDocument(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDocument("/src/moche.config"))
	assert.True(t, IsDocument("/src/tools/zlib.moche"))
	assert.False(t, IsDocument("/build/moche.build"))
	assert.False(t, IsDocument("/build/tools/zlib/version.txt"))
}
