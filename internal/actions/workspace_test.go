package actions

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/document"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/tui"
)

const sourceConfig = `
ToolsConfigRootPath   tools
RetrievalType         Source
[Action]
  Name                generate
  Dependency          retrieve-tools
  [Command]
    Command           mkdir
    [Arguments]
      Path            {Action}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func newContext(t *testing.T, dir string) (*runtime.Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &out, ErrWriter: &out, Level: tui.LevelDebug})
	require.NoError(t, err)
	rc := runtime.NewContext(splog, dir)
	rc.GOOS = "linux"
	return rc, &out
}

type scene struct {
	src   string
	build string
}

func newScene(t *testing.T) scene {
	t.Helper()
	root := t.TempDir()
	s := scene{src: filepath.Join(root, "src"), build: filepath.Join(root, "build")}
	writeFile(t, filepath.Join(s.src, config.ProjectFileName), sourceConfig)
	return s
}

func TestOpenWorkspaceSplitsSourceAndBuild(t *testing.T) {
	t.Parallel()

	s := newScene(t)
	writeFile(t, filepath.Join(s.src, "tools", "b.moche"), "[Tool]\n  Name b\n  Repo b\n")
	writeFile(t, filepath.Join(s.src, "tools", "a.moche"), "[Tool]\n  Name a\n  Repo a\n")
	writeFile(t, filepath.Join(s.src, "tools", "nested", "c.moche"), "[Tool]\n  Name c\n  Repo c\n")
	writeFile(t, filepath.Join(s.build, "tools", "local.moche"), "[Tool]\n  Name a\n  Repo local\n")
	writeFile(t, filepath.Join(s.build, config.ProjectFileName), "RetrievalType Binary\n")

	rc, _ := newContext(t, t.TempDir())
	ws, err := OpenWorkspace(rc, WorkspaceOptions{BuildDir: s.build, SourceDir: s.src, Executable: "/opt/moche/moche"})
	require.NoError(t, err)

	assert.Equal(t, s.src, ws.SourceDir)
	assert.Equal(t, s.build, ws.BuildDir)
	assert.Equal(t, filepath.Join(s.src, "tools"), ws.SourceToolsRoot)
	assert.Equal(t, filepath.Join(s.build, "tools"), ws.BuildToolsRoot)
	assert.False(t, ws.InTree())
	assert.Equal(t, []string{
		filepath.Join(s.src, "tools", "a.moche"),
		filepath.Join(s.src, "tools", "b.moche"),
		filepath.Join(s.build, "tools", "local.moche"),
	}, ws.Documents)

	assert.Equal(t, []config.RetrievalType{config.RetrievalBinary}, ws.Project.RetrievalType)
	assert.True(t, ws.Project.Action.Has("generate"))
	assert.True(t, ws.Project.Action.Has(config.ActionRetrieveTools))

	a, ok := ws.Catalog.Tool.Get("a")
	require.True(t, ok)
	assert.Equal(t, "local", a.Repo)
	assert.False(t, ws.Catalog.Tool.Has("c"))
	assert.True(t, ws.Catalog.Command.Has("mkdir"))

	info, err := document.Load(config.BuildInfoSchema, filepath.Join(s.build, config.BuildInfoFileName))
	require.NoError(t, err)
	assert.Equal(t, s.src, info.Source)
	assert.FileExists(t, filepath.Join(s.build, "moche.sh"))
}

func TestOpenWorkspaceRemembersSource(t *testing.T) {
	t.Parallel()

	s := newScene(t)
	rc, _ := newContext(t, t.TempDir())
	_, err := OpenWorkspace(rc, WorkspaceOptions{BuildDir: s.build, SourceDir: s.src})
	require.NoError(t, err)

	rc, _ = newContext(t, s.build)
	ws, err := OpenWorkspace(rc, WorkspaceOptions{FromScript: true})
	require.NoError(t, err)
	assert.Equal(t, s.src, ws.SourceDir)
	assert.Equal(t, s.build, ws.BuildDir)
}

func TestOpenWorkspaceAcceptsConfigFiles(t *testing.T) {
	t.Parallel()

	s := newScene(t)
	writeFile(t, filepath.Join(s.build, config.ProjectFileName), "RecursiveSearch true\n")

	rc, _ := newContext(t, t.TempDir())
	ws, err := OpenWorkspace(rc, WorkspaceOptions{
		BuildDir:  filepath.Join(s.build, config.ProjectFileName),
		SourceDir: filepath.Join(s.src, config.ProjectFileName),
		ReadOnly:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, s.src, ws.SourceDir)
	assert.Equal(t, s.build, ws.BuildDir)
	assert.True(t, ws.BuildRecursive)
	assert.False(t, ws.SourceRecursive)
	assert.NoFileExists(t, filepath.Join(s.build, config.BuildInfoFileName))
}

func TestOpenWorkspaceMissingSourceConfig(t *testing.T) {
	t.Parallel()

	rc, _ := newContext(t, t.TempDir())
	_, err := OpenWorkspace(rc, WorkspaceOptions{BuildDir: t.TempDir(), SourceDir: t.TempDir()})
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenWorkspaceFromScriptConflicts(t *testing.T) {
	t.Parallel()

	rc, _ := newContext(t, t.TempDir())
	_, err := OpenWorkspace(rc, WorkspaceOptions{FromScript: true, BuildDir: "build"})
	require.ErrorContains(t, err, "--build")
	_, err = OpenWorkspace(rc, WorkspaceOptions{FromScript: true, SourceDir: "src"})
	require.ErrorContains(t, err, "--src")
}

func TestOpenWorkspaceInTree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prompter *tui.Prompter
		wantErr  bool
	}{
		{name: "not asked", prompter: tui.NewPrompter(tui.InputNone), wantErr: true},
		{name: "declined", prompter: tui.NewScriptedPrompter(tui.InputFatal, false), wantErr: true},
		{name: "confirmed", prompter: tui.NewScriptedPrompter(tui.InputFatal, true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newScene(t)
			rc, out := newContext(t, s.src)
			rc.Prompter = tt.prompter
			ws, err := OpenWorkspace(rc, WorkspaceOptions{ReadOnly: true})
			assert.Contains(t, out.String(), "Trying to build in-tree!")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInTree)
				return
			}
			require.NoError(t, err)
			assert.True(t, ws.InTree())
		})
	}
}

func TestOpenWorkspaceDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	s := newScene(t)
	rc, _ := newContext(t, t.TempDir())
	rc.DryRun = true
	_, err := OpenWorkspace(rc, WorkspaceOptions{BuildDir: s.build, SourceDir: s.src, Executable: "/opt/moche/moche"})
	require.NoError(t, err)
	assert.NoDirExists(t, s.build)
}

func TestBind(t *testing.T) {
	t.Parallel()

	s := newScene(t)
	rc, _ := newContext(t, t.TempDir())
	ws, err := OpenWorkspace(rc, WorkspaceOptions{BuildDir: s.build, SourceDir: s.src})
	require.NoError(t, err)
	require.NoError(t, ws.Bind(rc))

	assert.Equal(t, filepath.Join(s.build, "tools"), rc.RootPath)
	assert.Equal(t, s.src, rc.SourceRoot)
	assert.Equal(t, s.build, rc.BuildRoot)
	assert.Equal(t, s.build, rc.Dir())
}
