// Package retrieval implements the strategies that place a repo on disk:
// finding an installed tool in PATH, downloading a prebuilt binary, or running
// source checkout commands.
package retrieval

import (
	"context"
	"path/filepath"

	"moche.dev/moche/internal/config"
	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/template"
)

// Strategy is one way of retrieving a repo. TryRetrieve and TryUpdate return
// an error when the strategy does not apply; the caller moves on to the next
// candidate unless the error is fatal.
type Strategy interface {
	TryRetrieve(ctx context.Context, rc *runtime.Context, t *Target) error
	TryUpdate(ctx context.Context, rc *runtime.Context, t *Target) error
	CanUpdate() bool
	AlwaysUpdates() bool
	NeedsBuild() bool
	ExecutablePath(t *Target, executable string) (string, error)
	Type() config.RetrievalType
}

// Invoker runs a command invocation in the given mode, on top of base.
type Invoker interface {
	Invoke(ctx context.Context, ci *config.CommandInvocation, mode config.Mode, base template.Scope) error
}

// Target is the repo a strategy works on, with the method being applied and
// the arguments available to templates.
type Target struct {
	Repo     *config.Repo
	Method   *config.RetrievalMethod
	Root     string
	Scope    template.Scope
	Expander *template.Expander
}

// Dir returns the directory holding everything retrieved for the repo.
func (t *Target) Dir() string {
	return filepath.Join(t.Root, t.Repo.Name)
}

// SourcePath returns the directory sources are checked out to.
func (t *Target) SourcePath() string {
	return filepath.Join(t.Dir(), config.SourceDir)
}

// BinaryPath returns the directory executables are installed to.
func (t *Target) BinaryPath() string {
	return filepath.Join(t.Dir(), config.BinaryDir)
}

// TempPath returns the scratch directory used for downloads and builds.
func (t *Target) TempPath() string {
	return filepath.Join(t.Dir(), config.TempDir)
}

// Expand resolves format against the target scope.
func (t *Target) Expand(format string) (string, error) {
	if format == "" {
		return "", nil
	}
	return t.Expander.Expand(format, t.Scope)
}

// Deps are the collaborators strategies need.
type Deps struct {
	Fetcher *fetch.Fetcher
	Invoker Invoker
}

// New returns the strategy declared by m.
func New(m *config.RetrievalMethod, deps Deps) (Strategy, error) {
	switch {
	case m.Path != nil:
		return &Path{Config: m.Path}, nil
	case m.Binary != nil:
		return &Binary{Config: m.Binary, Fetcher: deps.Fetcher}, nil
	case m.Source != nil:
		return &Source{Config: m.Source, Invoker: deps.Invoker}, nil
	}
	return nil, mocheerrors.NewSchemaError(0, "RetrievalMethod", m.Name, "declares no Path, Binary or Source block")
}
