package builtins

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moche.dev/moche/internal/config"
	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/template"
	"moche.dev/moche/internal/tui"
)

type fixture struct {
	rc       *runtime.Context
	registry *Registry
	expander *template.Expander
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &bytes.Buffer{}, ErrWriter: &bytes.Buffer{}, Level: tui.LevelTrace})
	require.NoError(t, err)
	f, err := fetch.New(context.Background(), fetch.Options{})
	require.NoError(t, err)
	return &fixture{
		rc:       runtime.NewContext(splog, t.TempDir()),
		registry: NewRegistry(Options{Fetcher: f}),
		expander: template.NewExpander(),
	}
}

// call runs builtin with the default arguments of the command of the same name
// under args.
func (f *fixture) call(name string, args map[string]string) error {
	var defaults template.Layer
	for _, cmd := range Commands() {
		if cmd.Name == name {
			defaults = cmd.Invoke[0].Defaults()
		}
	}
	scope := template.NewScope(template.Strings(args), defaults)
	return f.registry.Call(context.Background(), f.rc, name, Args{Expander: f.expander, Scope: scope})
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.rc.Dir()}, parts...)...)
}

func TestDirectoryStack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.rc.Dir()

	require.NoError(t, f.call("pushd", map[string]string{"Path": "build"}))
	assert.Equal(t, filepath.Join(root, "build"), f.rc.Dir())
	assert.DirExists(t, filepath.Join(root, "build"))

	require.NoError(t, f.call("cd", map[string]string{"Path": "sub"}))
	assert.Equal(t, filepath.Join(root, "build", "sub"), f.rc.Dir())

	require.NoError(t, f.call("popd", nil))
	assert.Equal(t, root, f.rc.Dir())
	require.Error(t, f.call("popd", nil))

	require.Error(t, f.call("pushd", map[string]string{"Path": "missing", "Create": "false"}))
	require.ErrorIs(t, f.call("pushd", nil), mocheerrors.ErrUnresolvedArgument)
}

func TestMkdirAndRm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.call("mkdir", map[string]string{"Path": "a/b/c"}))
	assert.DirExists(t, f.path("a", "b", "c"))
	require.NoError(t, f.call("mkdir", map[string]string{"Path": "a/b/c"}))
	require.Error(t, f.call("mkdir", map[string]string{"Path": "a/b/c", "IgnoreExisting": "false"}))
	require.Error(t, f.call("mkdir", map[string]string{"Path": "x/y", "Recursive": "false"}))

	require.NoError(t, os.WriteFile(f.path("a", "file"), []byte("x"), 0600))
	require.Error(t, f.call("mkdir", map[string]string{"Path": "a/file"}))

	require.NoError(t, f.call("rm", map[string]string{"Path": "a/file"}))
	assert.NoFileExists(t, f.path("a", "file"))
	require.NoError(t, f.call("rm", map[string]string{"Path": "a"}))
	assert.NoDirExists(t, f.path("a"))
	require.NoError(t, f.call("rm", map[string]string{"Path": "a"}))
	require.Error(t, f.call("rm", map[string]string{"Path": "a", "IgnoreUnexisting": "0"}))
}

func TestMoveAndCopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.path("src", "nested"), 0750))
	require.NoError(t, os.WriteFile(f.path("src", "nested", "file.txt"), []byte("content"), 0600))

	require.NoError(t, f.call("copy", map[string]string{"Source": "src", "Dest": "out/copy"}))
	data, err := os.ReadFile(f.path("out", "copy", "nested", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	err = f.call("copy", map[string]string{"Source": "src", "Dest": "out/copy", "Overwrite": "false"})
	require.ErrorContains(t, err, "already exists")

	require.NoError(t, f.call("move", map[string]string{"Source": "src/nested/file.txt", "Dest": "moved/file.txt"}))
	assert.FileExists(t, f.path("moved", "file.txt"))
	assert.NoFileExists(t, f.path("src", "nested", "file.txt"))

	require.ErrorContains(t, f.call("move", map[string]string{"Source": "nope", "Dest": "x"}), "not found")
	require.NoError(t, f.call("move", map[string]string{"Source": "nope", "Dest": "x", "IgnoreUnexisting": "true"}))
}

func TestDryRunLeavesDiskUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.rc.DryRun = true
	require.NoError(t, f.call("mkdir", map[string]string{"Path": "a"}))
	require.NoError(t, f.call("pushd", map[string]string{"Path": "b", "Create": "false"}))
	require.NoError(t, f.call("copy", map[string]string{"Source": "nope", "Dest": "c"}))
	require.NoError(t, f.call("download", map[string]string{"Url": "https://example.invalid/x.zip", "Dest": "d"}))
	require.NoError(t, f.call("git-clone", map[string]string{"Url": "https://example.invalid/x.git", "Dest": "e"}))
	require.NoError(t, f.call("popd", nil))

	entries, err := os.ReadDir(f.rc.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadAndUncompress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	archivePath := f.path("release.zip")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("pkg-1.0/bin/tool")
	require.NoError(t, err)
	_, err = w.Write([]byte("tool"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	require.NoError(t, f.call("download", map[string]string{"Url": archivePath, "Dest": "dl/release.zip"}))
	require.FileExists(t, f.path("dl", "release.zip"))

	require.NoError(t, f.call("uncompress", map[string]string{
		"Archive":            "dl/release.zip",
		"Dest":               "pkg",
		"FolderToUncompress": "pkg-1.0",
	}))
	data, err := os.ReadFile(f.path("pkg", "bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, "tool", string(data))
	assert.NoDirExists(t, f.path("pkg.extract"))

	require.NoError(t, os.WriteFile(f.path("pkg", "keep"), []byte("keep"), 0600))
	require.NoError(t, f.call("uncompress", map[string]string{
		"Archive":            "dl/release.zip",
		"Dest":               "pkg",
		"FolderToUncompress": "pkg-1.0",
		"Format":             "zip",
	}))
	assert.FileExists(t, f.path("pkg", "keep"))
	assert.FileExists(t, f.path("pkg", "bin", "tool"))
}

func TestUnknownBuiltin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.registry.Call(context.Background(), f.rc, "format-disk", Args{Expander: f.expander})
	require.ErrorIs(t, err, mocheerrors.ErrNotFound)
	assert.True(t, f.registry.Has("git-clone"))
	assert.Contains(t, f.registry.Names(), "github-release")
}

func TestCommandsHaveImplementations(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Options{})
	cat := config.NewCatalog()
	Install(cat)
	for name, cmd := range cat.Command.All() {
		for _, inv := range cmd.Invoke {
			assert.True(t, r.Has(inv.BuiltIn), "%s uses %s", name, inv.BuiltIn)
		}
	}
	dl, ok := cat.Command.Get("download-archive")
	require.True(t, ok)
	assert.Len(t, dl.Invoke, 3)
}

func TestOptionalArgs(t *testing.T) {
	t.Parallel()

	a := Args{
		Expander: template.NewExpander(),
		Scope: template.NewScope(template.Layer{
			"Declared": nil,
			"Version":  template.Value("v{Major}"),
			"Major":    template.Value("2"),
		}),
	}
	v, err := a.Optional("Missing")
	require.NoError(t, err)
	assert.Empty(t, v)
	v, err = a.Optional("Declared")
	require.NoError(t, err)
	assert.Empty(t, v)
	v, err = revision(a)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
