package actions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"moche.dev/moche/internal/builtins"
	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/document"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/tui"
)

// ErrInTree is returned when the build directory resolves to the source tools
// directory and the user did not confirm building in-tree.
var ErrInTree = errors.New("exiting because in-tree build is not supported")

// WorkspaceOptions locates the source and build directories of a run.
type WorkspaceOptions struct {
	// BuildDir is the directory to generate into, or a moche.config in it.
	// Defaults to the working directory.
	BuildDir string
	// SourceDir is the directory holding moche.config, or the file itself.
	// Defaults to the Source recorded in moche.build, then the working directory.
	SourceDir string
	// FromScript is set when moche runs from its generated launcher.
	FromScript bool
	// ReadOnly loads the workspace without writing moche.build or the launcher.
	ReadOnly bool
	// Executable is the moche binary the launcher runs.
	Executable string
}

// Workspace is the merged configuration of a run.
type Workspace struct {
	SourceDir string
	BuildDir  string
	BuildInfo *config.BuildInfo
	Project   *config.Project
	Catalog   *config.Catalog
	// Documents are the *.moche files merged into Catalog, in merge order.
	Documents []string

	SourceConfig    string
	BuildConfig     string
	SourceToolsRoot string
	BuildToolsRoot  string
	SourceRecursive bool
	BuildRecursive  bool
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// OpenWorkspace resolves the directories of a run, loads moche.config from the
// source then the build directory and merges every *.moche document over the
// builtin commands. Unless read-only, moche.build and the launcher script are
// written to the build directory.
func OpenWorkspace(rc *runtime.Context, opts WorkspaceOptions) (*Workspace, error) {
	if opts.FromScript && opts.BuildDir != "" {
		return nil, errors.New("--build is not compatible with --from-script")
	}
	if opts.FromScript && opts.SourceDir != "" {
		return nil, errors.New("--src is not compatible with --from-script")
	}

	ws := &Workspace{BuildDir: rc.Abs(opts.BuildDir)}
	ws.BuildConfig = filepath.Join(ws.BuildDir, config.ProjectFileName)
	if isFile(ws.BuildDir) {
		ws.BuildConfig = ws.BuildDir
		ws.BuildDir = filepath.Dir(ws.BuildDir)
	}

	ws.BuildInfo = &config.BuildInfo{}
	buildInfoFile := filepath.Join(ws.BuildDir, config.BuildInfoFileName)
	if isFile(buildInfoFile) {
		if err := document.MergeFile(buildInfoFile, ws.BuildInfo, config.BuildInfoSchema); err != nil {
			return nil, err
		}
	}
	if opts.SourceDir != "" {
		ws.BuildInfo.Source = rc.Abs(opts.SourceDir)
	}
	if ws.BuildInfo.Source == "" {
		ws.BuildInfo.Source = rc.Dir()
	}

	ws.SourceDir = ws.BuildInfo.Source
	ws.SourceConfig = filepath.Join(ws.SourceDir, config.ProjectFileName)
	if isFile(ws.SourceDir) {
		ws.SourceConfig = ws.SourceDir
		ws.SourceDir = filepath.Dir(ws.SourceDir)
		ws.BuildInfo.Source = ws.SourceDir
	}
	if !isFile(ws.SourceConfig) {
		return nil, fmt.Errorf("can't find source config file %s: %w", ws.SourceConfig, fs.ErrNotExist)
	}

	if !opts.ReadOnly {
		if err := ws.writeBuildFiles(rc, opts); err != nil {
			return nil, err
		}
	}
	if err := ws.loadProject(rc); err != nil {
		return nil, err
	}
	if err := ws.loadCatalog(rc); err != nil {
		return nil, err
	}
	return ws, nil
}

func (ws *Workspace) writeBuildFiles(rc *runtime.Context, opts WorkspaceOptions) error {
	if rc.DryRun {
		rc.Splog.Debug("Would write %s", filepath.Join(ws.BuildDir, config.BuildInfoFileName))
		return nil
	}
	if err := os.MkdirAll(ws.BuildDir, 0750); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	if opts.FromScript {
		return nil
	}
	if err := document.WriteFile(filepath.Join(ws.BuildDir, config.BuildInfoFileName), ws.BuildInfo, config.BuildInfoSchema); err != nil {
		return err
	}
	if opts.Executable == "" {
		return nil
	}
	script, err := WriteLauncher(ws.BuildDir, opts.Executable, rc.GOOS)
	if err != nil {
		return err
	}
	rc.Splog.Debug("Wrote %s", script)
	return nil
}

func (ws *Workspace) loadProject(rc *runtime.Context) error {
	ws.Project = config.NewProject()
	if err := document.MergeFile(ws.SourceConfig, ws.Project, config.ProjectSchema); err != nil {
		return err
	}
	ws.SourceToolsRoot = ws.Project.ResolveToolsRoot(ws.SourceDir)
	ws.SourceRecursive = ws.Project.RecursiveSearch

	if ws.BuildConfig != ws.SourceConfig && isFile(ws.BuildConfig) {
		rc.Splog.Debug("Merging build config %s", ws.BuildConfig)
		if err := document.MergeFile(ws.BuildConfig, ws.Project, config.ProjectSchema); err != nil {
			return err
		}
	}
	ws.BuildToolsRoot = ws.Project.ResolveToolsRoot(ws.BuildDir)
	ws.BuildRecursive = ws.Project.RecursiveSearch

	if ws.InTree() {
		rc.Splog.Error("Trying to build in-tree!")
		ok, err := rc.Prompter.Confirm(tui.InputFatal, "Are you sure to build in-tree?", false)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInTree
		}
		ws.SourceRecursive = ws.SourceRecursive || ws.BuildRecursive
	}
	return nil
}

// InTree reports whether the source and build tools directories are the same.
func (ws *Workspace) InTree() bool {
	return ws.SourceToolsRoot == ws.BuildToolsRoot
}

func (ws *Workspace) loadCatalog(rc *runtime.Context) error {
	files, err := config.FindCatalogs(ws.SourceToolsRoot, ws.SourceRecursive)
	if err != nil {
		return err
	}
	if !ws.InTree() {
		more, err := config.FindCatalogs(ws.BuildToolsRoot, ws.BuildRecursive)
		if err != nil {
			return err
		}
		files = append(files, more...)
	}

	ws.Catalog = config.NewCatalog()
	builtins.Install(ws.Catalog)
	for _, f := range files {
		rc.Splog.Trace("Loading %s", f)
		if err := document.MergeFile(f, ws.Catalog, config.CatalogSchema); err != nil {
			return err
		}
	}
	ws.Documents = files
	rc.Splog.Debug("Loaded %d tool documents", len(files))
	return nil
}

// Bind points rc at the workspace: tools are retrieved under the build tools
// directory and commands start in the build directory.
func (ws *Workspace) Bind(rc *runtime.Context) error {
	rc.RootPath = ws.BuildToolsRoot
	rc.SourceRoot = ws.SourceDir
	rc.BuildRoot = ws.BuildDir
	return rc.SetDir(ws.BuildDir, true)
}
