package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"moche.dev/moche/internal/config"
)

// Scene is a test project: a source directory holding moche.config and its
// tool documents, a separate build directory and a private settings file.
// Scenes never change the process working directory and are safe for
// parallel tests.
type Scene struct {
	Dir   string
	Src   string
	Build string
	// Settings is a settings file keeping logs and history inside Dir.
	Settings string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// DefaultConfig is the moche.config written by NewScene.
const DefaultConfig = `
ToolsConfigRootPath   tools
RetrievalType         Source
`

// NewScene creates a scene with DefaultConfig in its source directory.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	dir := t.TempDir()
	scene := &Scene{
		Dir:      dir,
		Src:      filepath.Join(dir, "src"),
		Build:    filepath.Join(dir, "build"),
		Settings: filepath.Join(dir, "settings.toml"),
	}
	settings := fmt.Sprintf("history = true\nhistory_db = %q\n", filepath.Join(dir, "history.db"))
	if err := writeFile(scene.Settings, settings); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
	if err := scene.WriteSource(config.ProjectFileName, DefaultConfig); err != nil {
		t.Fatalf("Failed to write %s: %v", config.ProjectFileName, err)
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0600)
}

// WriteSource writes a file relative to the source directory.
func (s *Scene) WriteSource(name, content string) error {
	return writeFile(filepath.Join(s.Src, name), content)
}

// WriteBuild writes a file relative to the build directory.
func (s *Scene) WriteBuild(name, content string) error {
	return writeFile(filepath.Join(s.Build, name), content)
}

// WriteTool writes a *.moche document in the source tools directory.
func (s *Scene) WriteTool(name, content string) error {
	return s.WriteSource(filepath.Join("tools", name+config.CatalogExtension), content)
}

// ToolsRoot returns the directory tools are retrieved to.
func (s *Scene) ToolsRoot() string {
	return filepath.Join(s.Build, "tools")
}

// Stamp reads the version.txt of repo, or nil when it was never retrieved.
func (s *Scene) Stamp(repo string) (*config.Stamp, error) {
	return config.ReadStamp(config.StampPath(s.ToolsRoot(), repo))
}

// MkdirRepo is a tool document for a repo retrieved by creating its source
// directory and built by creating its bin directory.
func MkdirRepo(name, version string) string {
	return fmt.Sprintf(`
[Tool]
  Name                %[1]s
  Repo                %[1]s
  Mandatory           true

[Repo]
  Name                %[1]s
  [Retrieval]
    Name              checkout
    Version           %[2]s
    [Source]
      Updatable       true
      [Command]
        Command       mkdir
        [Arguments]
          Path        {SourcePath}
  [Build]
    Command           mkdir
    [Arguments]
      Path            {BinaryPath}
`, name, version)
}

// BasicSceneSetup declares a single mandatory tool.
func BasicSceneSetup(scene *Scene) error {
	return scene.WriteTool("zlib", MkdirRepo("zlib", "1.3"))
}
