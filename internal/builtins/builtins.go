// Package builtins implements the commands moche provides without an external
// process: file system operations, working directory changes, downloads,
// archive extraction and git checkouts.
package builtins

import (
	"context"
	"sort"

	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/template"
)

// Args gives a builtin access to its arguments.
type Args struct {
	Expander *template.Expander
	Scope    template.Scope
}

// String expands the argument name. It fails when name has no value.
func (a Args) String(name string) (string, error) {
	return a.Expander.Arg(a.Scope, name)
}

// Bool reads name as a flag, def when undeclared.
func (a Args) Bool(name string, def bool) (bool, error) {
	return a.Expander.Bool(a.Scope, name, def)
}

// Optional expands name, or returns "" when it is undeclared or has no value.
func (a Args) Optional(name string) (string, error) {
	v, ok := a.Scope.Lookup(name)
	if !ok || v == nil {
		return "", nil
	}
	return a.String(name)
}

// Func is the implementation of a builtin.
type Func func(ctx context.Context, rc *runtime.Context, args Args) error

// Options configures a Registry.
type Options struct {
	Fetcher *fetch.Fetcher
	// GitToken authenticates HTTPS git remotes.
	GitToken string
}

// Registry maps builtin names to their implementation.
type Registry struct {
	funcs map[string]Func
	opts  Options
}

// NewRegistry returns a registry holding every standard builtin.
func NewRegistry(opts Options) *Registry {
	r := &Registry{funcs: make(map[string]Func), opts: opts}
	r.Register("pushd", pushd)
	r.Register("popd", popd)
	r.Register("cd", cd)
	r.Register("mkdir", mkdir)
	r.Register("rm", rm)
	r.Register("move", move)
	r.Register("copy", copyFiles)
	r.Register("download", r.download)
	r.Register("uncompress", uncompress)
	r.Register("github-release", r.githubRelease)
	r.Register("git-clone", r.gitClone)
	r.Register("git-pull", r.gitPull)
	return r
}

// Register adds or replaces a builtin.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Names returns the registered builtins, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the builtin name.
func (r *Registry) Call(ctx context.Context, rc *runtime.Context, name string, args Args) error {
	fn, ok := r.funcs[name]
	if !ok {
		return mocheerrors.NewNotFoundError("builtin", name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, rc, args)
}
