package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var testFiles = map[string]string{
	"tool-1.0/bin/tool":  "#!/bin/sh\necho tool\n",
	"tool-1.0/README.md": "readme",
}

func writeTar(t *testing.T, w io.Writer, files map[string]string) {
	t.Helper()
	tw := tar.NewWriter(w)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "tool-1.0/", Typeflag: tar.TypeDir, Mode: 0755}))
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0755, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func createArchive(t *testing.T, format Format, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive."+format.String())
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch format {
	case Zip:
		zw := zip.NewWriter(f)
		for name, content := range files {
			w, err := zw.Create(name)
			require.NoError(t, err)
			_, err = w.Write([]byte(content))
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())
	case Tar:
		writeTar(t, f, files)
	case TarGz:
		gz := gzip.NewWriter(f)
		writeTar(t, gz, files)
		require.NoError(t, gz.Close())
	case TarXz:
		xw, err := xz.NewWriter(f)
		require.NoError(t, err)
		writeTar(t, xw, files)
		require.NoError(t, xw.Close())
	case TarZst:
		zw, err := zstd.NewWriter(f)
		require.NoError(t, err)
		writeTar(t, zw, files)
		require.NoError(t, zw.Close())
	}
	return path
}

func TestExtract(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{Zip, Tar, TarGz, TarXz, TarZst} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			path := createArchive(t, format, testFiles)
			dest := filepath.Join(t.TempDir(), "out")

			require.NoError(t, Extract(path, dest, Unknown))
			for name, content := range testFiles {
				data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
				require.NoError(t, err)
				require.Equal(t, content, string(data))
			}
		})
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	path := createArchive(t, TarGz, map[string]string{"../evil": "x"})
	dest := filepath.Join(t.TempDir(), "out")
	require.ErrorContains(t, Extract(path, dest, TarGz), "escapes")
	require.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil"))
}

func TestExtractUnknownFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file.rar")
	require.NoError(t, os.WriteFile(path, []byte("rar"), 0600))
	require.Error(t, Extract(path, t.TempDir(), Unknown))
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"cmake-3.28.1-linux-x86_64.tar.gz":            TarGz,
		"https://example.com/ninja-win.ZIP":           Zip,
		"https://example.com/node.tar.xz?raw=1":       TarXz,
		"tool.tgz":                                    TarGz,
		"tool.tzst":                                   TarZst,
		"tool.tar":                                    Tar,
		"tool.exe":                                    Unknown,
		"https://example.com/download#section.tar.gz": Unknown,
	}
	for name, want := range tests {
		require.Equal(t, want, DetectFormat(name), name)
	}

	f, err := ParseFormat("tgz")
	require.NoError(t, err)
	require.Equal(t, TarGz, f)
	f, err = ParseFormat("tar.xz")
	require.NoError(t, err)
	require.Equal(t, TarXz, f)
	_, err = ParseFormat("rar")
	require.Error(t, err)
}
