package actions

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/watch"
)

// WatchOptions configures WatchAction.
type WatchOptions struct {
	Run      RunOptions
	Debounce time.Duration
}

// IsDocument reports whether path is a moche.config or *.moche file.
func IsDocument(path string) bool {
	base := filepath.Base(path)
	return base == config.ProjectFileName ||
		strings.EqualFold(filepath.Ext(base), config.CatalogExtension)
}

// WatchAction runs the requested actions, then runs them again whenever a
// document of the workspace changes, until ctx is done. A failed run is
// reported and the watch goes on.
func WatchAction(ctx context.Context, rc *runtime.Context, opts WatchOptions) error {
	ws, err := OpenWorkspace(rc, opts.Run.Workspace)
	if err != nil {
		return err
	}
	if err := RunWorkspace(ctx, rc, ws, opts.Run); err != nil {
		rc.Splog.Error("%v", err)
	}

	roots := []string{ws.SourceDir}
	if ws.SourceToolsRoot != ws.SourceDir {
		roots = append(roots, ws.SourceToolsRoot)
	}
	if !ws.InTree() && ws.BuildToolsRoot != ws.BuildDir {
		roots = append(roots, ws.BuildToolsRoot)
	}
	if ws.BuildDir != ws.SourceDir {
		roots = append(roots, ws.BuildDir)
	}

	w, err := watch.New(watch.Options{
		Roots:     roots,
		Recursive: ws.SourceRecursive || ws.BuildRecursive,
		Match:     IsDocument,
		Debounce:  opts.Debounce,
		OnError:   func(err error) { rc.Splog.Error("%v", err) },
	})
	if err != nil {
		return err
	}
	defer w.Close()

	// Reruns reopen the directories resolved by the first run.
	rerun := opts.Run
	rerun.Workspace.BuildDir = ws.BuildDir
	rerun.Workspace.SourceDir = ws.SourceDir
	rerun.Workspace.FromScript = false
	rerun.Workspace.ReadOnly = true

	rc.Splog.Info("Watching %s for changes...", strings.Join(roots, ", "))
	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		for _, path := range changed {
			rc.Splog.Debug("Changed: %s", path)
		}
		rc.Splog.Info("Configuration changed, running again.")
		return RunAction(ctx, rc, rerun)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
