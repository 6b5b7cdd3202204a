package actions

import (
	"context"
	"os"

	"moche.dev/moche/internal/builtins"
	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/engine"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/history"
	"moche.dev/moche/internal/runtime"
)

// RunOptions configures RunAction.
type RunOptions struct {
	Workspace WorkspaceOptions
	// Actions to run with their dependencies. Defaults to retrieve-tools.
	Actions []string
	// RetrievalTypes overrides the RetrievalType of moche.config.
	RetrievalTypes []config.RetrievalType
	Fetcher        *fetch.Fetcher
	GitToken       string
	// History records the run when set.
	History *history.Store
}

// DefaultActions returns the actions run when none is requested.
func DefaultActions() []string {
	return []string{config.ActionRetrieveTools}
}

// RunAction opens the workspace and runs the requested actions.
func RunAction(ctx context.Context, rc *runtime.Context, opts RunOptions) error {
	ws, err := OpenWorkspace(rc, opts.Workspace)
	if err != nil {
		return err
	}
	return RunWorkspace(ctx, rc, ws, opts)
}

// RunWorkspace runs the requested actions of an opened workspace.
func RunWorkspace(ctx context.Context, rc *runtime.Context, ws *Workspace, opts RunOptions) (err error) {
	requested := opts.Actions
	if len(requested) == 0 {
		requested = DefaultActions()
	}
	types := opts.RetrievalTypes
	if len(types) == 0 {
		types = ws.Project.RetrievalType
	}

	depth := rc.Depth()
	initial := rc.Dir()
	defer func() {
		rc.Restore(depth)
		if serr := rc.SetDir(initial, false); serr != nil && err == nil {
			err = serr
		}
	}()
	if err := ws.Bind(rc); err != nil {
		return err
	}

	if opts.History != nil {
		run := &history.Run{
			ID:        rc.RunID,
			SourceDir: ws.SourceDir,
			BuildDir:  ws.BuildDir,
			Actions:   requested,
			DryRun:    rc.DryRun,
		}
		if herr := opts.History.Begin(run); herr != nil {
			rc.Splog.Warn("History disabled for this run: %v", herr)
		} else {
			previous := rc.Recorder
			rc.Recorder = opts.History
			defer func() {
				rc.Recorder = previous
				if herr := opts.History.Finish(err); herr != nil {
					rc.Splog.Warn("Failed to record run history: %v", herr)
				}
			}()
		}
	}

	eng := engine.New(rc, engine.Options{
		Catalog:        ws.Catalog,
		RetrievalTypes: types,
		Builtins:       builtins.NewRegistry(builtins.Options{Fetcher: opts.Fetcher, GitToken: opts.GitToken}),
		Fetcher:        opts.Fetcher,
	})
	if err := eng.RunActions(ctx, ws.Project, requested); err != nil {
		return err
	}
	rc.Splog.Info("Done!")
	return nil
}

// Executable returns the path of the running binary, for the launcher script.
func Executable() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return exe
}
