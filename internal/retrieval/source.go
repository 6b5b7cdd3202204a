package retrieval

import (
	"context"
	"errors"
	"path/filepath"

	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/runtime"
)

// Source runs the commands that fetch a repo's sources. The repo build
// commands then produce its executables.
type Source struct {
	Config  *config.SourceMethod
	Invoker Invoker
}

func (s *Source) run(ctx context.Context, t *Target, mode config.Mode) error {
	if s.Invoker == nil {
		return errors.New("source retrieval has no command runner")
	}
	for _, ci := range s.Config.Command {
		if err := s.Invoker.Invoke(ctx, ci, mode, t.Scope); err != nil {
			return err
		}
	}
	return nil
}

// TryRetrieve runs the commands in Retrieve mode.
func (s *Source) TryRetrieve(ctx context.Context, _ *runtime.Context, t *Target) error {
	return s.run(ctx, t, config.ModeRetrieve)
}

// TryUpdate runs the commands in Update mode.
func (s *Source) TryUpdate(ctx context.Context, _ *runtime.Context, t *Target) error {
	return s.run(ctx, t, config.ModeUpdate)
}

// CanUpdate reports the Updatable flag.
func (s *Source) CanUpdate() bool { return s.Config.Updatable }

// AlwaysUpdates reports the AlwaysUpdate flag, set for checkouts following a live branch.
func (s *Source) AlwaysUpdates() bool { return s.Config.AlwaysUpdate }

// NeedsBuild always returns true.
func (s *Source) NeedsBuild() bool { return true }

// ExecutablePath returns executable inside the repo bin directory.
func (s *Source) ExecutablePath(t *Target, executable string) (string, error) {
	return filepath.Join(t.BinaryPath(), executable), nil
}

// Type returns config.RetrievalSource.
func (s *Source) Type() config.RetrievalType { return config.RetrievalSource }
