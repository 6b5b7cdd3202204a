package retrieval

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	goruntime "runtime"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"moche.dev/moche/internal/config"
	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/platform"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/template"
	"moche.dev/moche/internal/tui"
)

func newContext(t *testing.T) *runtime.Context {
	t.Helper()
	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &bytes.Buffer{}, ErrWriter: &bytes.Buffer{}, Level: tui.LevelDebug})
	require.NoError(t, err)
	rc := runtime.NewContext(splog, t.TempDir())
	rc.RootPath = filepath.Join(rc.Dir(), "tools")
	rc.Platform = platform.Platform{OS: platform.Unix, Arch: platform.X64}
	return rc
}

func newTarget(rc *runtime.Context, repo *config.Repo, m *config.RetrievalMethod) *Target {
	return &Target{
		Repo:     repo,
		Method:   m,
		Root:     rc.RootPath,
		Scope:    template.NewScope(template.Strings(map[string]string{"RepoName": repo.Name}), rc.Facts()),
		Expander: template.NewExpander(),
	}
}

func writeScript(t *testing.T, output string) string {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho '"+output+"'\n"), 0o755))
	return path
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"3.28.1", "3.28.1", 0},
		{"3.28", "3.28.0", 0},
		{"v1.12.1", "1.11.9", 1},
		{"2.0", "10.0", -1},
		{"1.2.3.4", "1.2.3.5", -1},
	}
	for _, tt := range tests {
		a, err := ParseVersion(tt.a)
		require.NoError(t, err)
		b, err := ParseVersion(tt.b)
		require.NoError(t, err)
		require.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
	}

	for _, bad := range []string{"", "1.x", "1.2.3.4.5", "-1"} {
		_, err := ParseVersion(bad)
		require.Error(t, err, bad)
	}
	v, _ := ParseVersion("v3.5")
	require.Equal(t, "3.5", v.String())
}

func TestPathRetrieve(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fake version 3.21.4 (build 7)")
	repo := &config.Repo{
		Name:                          "cmake",
		VersionCheckExecutable:        script,
		VersionCheckArguments:         "--version",
		VersionCheckRegex:             `version (\d+\.\d+\.\d+)`,
		VersionCheckRegexCaptureIndex: 1,
	}
	m := &config.RetrievalMethod{Name: "path", Path: &config.PathMethod{}}
	s, err := New(m, Deps{})
	require.NoError(t, err)
	require.Equal(t, config.RetrievalPath, s.Type())
	require.True(t, s.CanUpdate())
	require.True(t, s.AlwaysUpdates())
	require.False(t, s.NeedsBuild())

	rc := newContext(t)
	target := newTarget(rc, repo, m)
	require.NoError(t, s.TryRetrieve(context.Background(), rc, target))
	require.NoError(t, s.TryUpdate(context.Background(), rc, target))

	repo.VersionMin = "3.22"
	require.ErrorContains(t, s.TryRetrieve(context.Background(), rc, target), "older")

	repo.VersionMin = ""
	repo.VersionMax = "3.20.9"
	require.ErrorContains(t, s.TryRetrieve(context.Background(), rc, target), "newer")

	repo.VersionMax = ""
	repo.VersionCheckRegex = `release (\d+)`
	require.ErrorContains(t, s.TryRetrieve(context.Background(), rc, target), "not found")

	repo.VersionCheckRegex = `(`
	err = s.TryRetrieve(context.Background(), rc, target)
	require.True(t, mocheerrors.IsFatal(err))
}

func TestPathMissingExecutable(t *testing.T) {
	t.Parallel()

	repo := &config.Repo{Name: "ninja", VersionCheckExecutable: "moche-no-such-tool-xyz"}
	m := &config.RetrievalMethod{Name: "path", Path: &config.PathMethod{}}
	s, err := New(m, Deps{})
	require.NoError(t, err)

	rc := newContext(t)
	err = s.TryRetrieve(context.Background(), rc, newTarget(rc, repo, m))
	require.Error(t, err)
	require.False(t, mocheerrors.IsFatal(err))

	repo.VersionCheckExecutable = ""
	require.Error(t, s.TryRetrieve(context.Background(), rc, newTarget(rc, repo, m)))
}

func TestPathExecutablePath(t *testing.T) {
	t.Parallel()

	rc := newContext(t)
	repo := &config.Repo{Name: "cmake"}
	m := &config.RetrievalMethod{Name: "path", Path: &config.PathMethod{}}
	s := &Path{Config: m.Path}

	p, err := s.ExecutablePath(newTarget(rc, repo, m), "cmake")
	require.NoError(t, err)
	require.Equal(t, "cmake", p)

	m.Path.Path = "/opt/{RepoName}/bin"
	p, err = s.ExecutablePath(newTarget(rc, repo, m), "cmake")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/opt/cmake/bin", "cmake"), p)
}

func writeTarGz(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o755, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return path
}

func newBinary(t *testing.T, url string) (*config.RetrievalMethod, Strategy) {
	t.Helper()
	m := &config.RetrievalMethod{Name: "binary", Binary: &config.BinaryMethod{}}
	m.Binary.Url.Set(platform.Platform{OS: platform.Unix, Arch: platform.X64}, &config.RemoteFile{
		Url:             url,
		FolderToExtract: "tool-1.0/bin",
	})
	f, err := fetch.New(context.Background(), fetch.Options{})
	require.NoError(t, err)
	s, err := New(m, Deps{Fetcher: f})
	require.NoError(t, err)
	return m, s
}

func TestBinaryRetrieve(t *testing.T) {
	t.Parallel()

	archivePath := writeTarGz(t, map[string]string{"tool-1.0/bin/tool": "binary", "tool-1.0/README": "readme"})
	m, s := newBinary(t, archivePath)
	require.Equal(t, config.RetrievalBinary, s.Type())
	require.False(t, s.CanUpdate())
	require.False(t, s.NeedsBuild())

	rc := newContext(t)
	target := newTarget(rc, &config.Repo{Name: "tool"}, m)
	require.NoError(t, s.TryRetrieve(context.Background(), rc, target))

	exe, err := s.ExecutablePath(target, "tool")
	require.NoError(t, err)
	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	require.Equal(t, "binary", string(data))
	require.NoDirExists(t, target.TempPath())
	require.Error(t, s.TryUpdate(context.Background(), rc, target))
}

func TestBinaryRetrieveOtherPlatform(t *testing.T) {
	t.Parallel()

	m, s := newBinary(t, "https://example.invalid/tool.tar.gz")
	rc := newContext(t)
	rc.Platform = platform.Platform{OS: platform.Windows, Arch: platform.X64}
	err := s.TryRetrieve(context.Background(), rc, newTarget(rc, &config.Repo{Name: "tool"}, m))
	require.ErrorContains(t, err, "no url for Windows-x64")
}

func TestBinaryRetrieveDryRun(t *testing.T) {
	t.Parallel()

	m, s := newBinary(t, "https://example.invalid/tool.tar.gz")
	rc := newContext(t)
	rc.DryRun = true
	target := newTarget(rc, &config.Repo{Name: "tool"}, m)
	require.NoError(t, s.TryRetrieve(context.Background(), rc, target))
	require.NoDirExists(t, target.Dir())
}

type call struct {
	command string
	mode    config.Mode
	repo    string
}

type recordingInvoker struct {
	calls []call
	err   error
}

func (r *recordingInvoker) Invoke(_ context.Context, ci *config.CommandInvocation, mode config.Mode, base template.Scope) error {
	name, _ := base.Lookup("RepoName")
	r.calls = append(r.calls, call{command: ci.Command, mode: mode, repo: *name})
	return r.err
}

func TestSource(t *testing.T) {
	t.Parallel()

	invoker := &recordingInvoker{}
	m := &config.RetrievalMethod{Name: "git", Source: &config.SourceMethod{
		Updatable: true,
		Command:   []*config.CommandInvocation{{Command: "git-clone"}, {Command: "patch"}},
	}}
	s, err := New(m, Deps{Invoker: invoker})
	require.NoError(t, err)
	require.Equal(t, config.RetrievalSource, s.Type())
	require.True(t, s.NeedsBuild())
	require.True(t, s.CanUpdate())
	require.False(t, s.AlwaysUpdates())

	rc := newContext(t)
	target := newTarget(rc, &config.Repo{Name: "zlib"}, m)
	require.NoError(t, s.TryRetrieve(context.Background(), rc, target))
	require.NoError(t, s.TryUpdate(context.Background(), rc, target))
	require.Equal(t, []call{
		{"git-clone", config.ModeRetrieve, "zlib"},
		{"patch", config.ModeRetrieve, "zlib"},
		{"git-clone", config.ModeUpdate, "zlib"},
		{"patch", config.ModeUpdate, "zlib"},
	}, invoker.calls)

	invoker.err = errors.New("clone failed")
	invoker.calls = nil
	require.ErrorContains(t, s.TryRetrieve(context.Background(), rc, target), "clone failed")
	require.Len(t, invoker.calls, 1)

	p, err := s.ExecutablePath(target, "zlib-tool")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(rc.RootPath, "zlib", "bin", "zlib-tool"), p)
}

func TestNewWithoutKind(t *testing.T) {
	t.Parallel()

	_, err := New(&config.RetrievalMethod{Name: "empty"}, Deps{})
	require.ErrorIs(t, err, mocheerrors.ErrSchema)
}
