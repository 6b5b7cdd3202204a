package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"moche.dev/moche/internal/config"
	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/retrieval"
	"moche.dev/moche/internal/template"
)

type repoStatus int

const (
	unretrieved repoStatus = iota
	retrieving
	retrieved
	failed
)

type repoState struct {
	status   repoStatus
	err      error
	method   *config.RetrievalMethod
	strategy retrieval.Strategy
	target   *retrieval.Target
}

// restriction limits the retrieval methods of a repo at a call site.
type restriction struct {
	methods []string
	types   []config.RetrievalType
}

func (e *Engine) methodNames(repo *config.Repo, r restriction) []string {
	if len(r.methods) > 0 {
		return r.methods
	}
	return repo.AllowedRetrieval
}

func (e *Engine) methodTypes(repo *config.Repo, r restriction) []config.RetrievalType {
	switch {
	case len(r.types) > 0:
		return r.types
	case len(repo.RetrievalType) > 0:
		return repo.RetrievalType
	}
	return e.retrievalTypes
}

type candidate struct {
	method   *config.RetrievalMethod
	strategy retrieval.Strategy
}

func (e *Engine) strategy(m *config.RetrievalMethod) (retrieval.Strategy, error) {
	if s, ok := e.strategies[m]; ok {
		return s, nil
	}
	s, err := e.newStrategy(m)
	if err != nil {
		return nil, err
	}
	e.strategies[m] = s
	return s, nil
}

// candidates lists the methods to try, in order: the allowed method names,
// else the methods of each allowed type, else every method.
func (e *Engine) candidates(repo *config.Repo, r restriction) ([]candidate, error) {
	if names := e.methodNames(repo, r); len(names) > 0 {
		var out []candidate
		for _, name := range names {
			m := repo.Method(name)
			if m == nil {
				e.rc.Splog.Debug("Repo %s has no retrieval method %s", repo.Name, name)
				continue
			}
			s, err := e.strategy(m)
			if err != nil {
				return nil, err
			}
			out = append(out, candidate{m, s})
		}
		return out, nil
	}

	all := make([]candidate, 0, len(repo.Retrieval))
	for _, m := range repo.Retrieval {
		s, err := e.strategy(m)
		if err != nil {
			return nil, err
		}
		all = append(all, candidate{m, s})
	}
	types := e.methodTypes(repo, r)
	if len(types) == 0 {
		return all, nil
	}
	var out []candidate
	for _, t := range types {
		for _, c := range all {
			if c.strategy.Type() == t {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (e *Engine) allowed(repo *config.Repo, r restriction, c candidate) bool {
	if names := e.methodNames(repo, r); len(names) > 0 {
		return slices.Contains(names, c.method.Name)
	}
	if types := e.methodTypes(repo, r); len(types) > 0 {
		return slices.Contains(types, c.strategy.Type())
	}
	return true
}

func (e *Engine) repoDir(repo *config.Repo) string {
	return filepath.Join(e.rc.RootPath, repo.Name)
}

func (e *Engine) target(repo *config.Repo, m *config.RetrievalMethod) *retrieval.Target {
	dir := e.repoDir(repo)
	paths := template.Strings(map[string]string{
		"RepoName":   repo.Name,
		"RepoPath":   dir,
		"BuildPath":  filepath.Join(dir, config.TempDir),
		"SourcePath": filepath.Join(dir, config.SourceDir),
		"BinaryPath": filepath.Join(dir, config.BinaryDir),
		"Version":    m.Version,
		"Branch":     m.Branch,
	})
	return &retrieval.Target{
		Repo:     repo,
		Method:   m,
		Root:     e.rc.RootPath,
		Scope:    template.NewScope(paths).Chain(e.Facts()),
		Expander: e.expander,
	}
}

func (e *Engine) clean(repo *config.Repo) error {
	dir := e.repoDir(repo)
	if e.rc.DryRun {
		e.rc.Splog.Info("rm %s", dir)
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	e.rc.Splog.Debug("Cleaning %s", dir)
	e.rc.Record("clean", repo.Name, dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clean %s: %w", repo.Name, err)
	}
	return nil
}

// Retrieve makes repo available on disk and built, once per run.
func (e *Engine) Retrieve(ctx context.Context, repo *config.Repo, r restriction) (*repoState, error) {
	st, ok := e.repos[repo.Name]
	if !ok {
		st = &repoState{}
		e.repos[repo.Name] = st
	}
	switch st.status {
	case retrieved:
		return st, nil
	case failed:
		return nil, st.err
	case retrieving:
		return nil, mocheerrors.NewCircularDependencyError("repo", repo.Name)
	}

	st.status = retrieving
	if err := e.retrieve(ctx, repo, r, st); err != nil {
		st.status, st.err = failed, fmt.Errorf("repo %s: %w", repo.Name, err)
		return nil, st.err
	}
	st.status = retrieved
	return st, nil
}

func (e *Engine) writeStamp(repo *config.Repo, stamp *config.Stamp) error {
	if e.rc.DryRun {
		return nil
	}
	path := config.StampPath(e.rc.RootPath, repo.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return config.WriteStamp(path, stamp)
}

func (e *Engine) readStamp(repo *config.Repo) (*config.Stamp, error) {
	stamp, err := config.ReadStamp(config.StampPath(e.rc.RootPath, repo.Name))
	if err != nil {
		return nil, err
	}
	if stamp != nil && repo.Method(stamp.Name) == nil {
		e.rc.Splog.Debug("Repo %s was retrieved with %s which is no longer declared", repo.Name, stamp.Name)
		return nil, nil
	}
	return stamp, nil
}

func (e *Engine) retrieve(ctx context.Context, repo *config.Repo, r restriction, st *repoState) error {
	stamp, err := e.readStamp(repo)
	if err != nil {
		return err
	}

	stampChanged := false
	if stamp == nil {
		if err := e.clean(repo); err != nil {
			return err
		}
		c, err := e.fullRetrieve(ctx, repo, r)
		if err != nil {
			return err
		}
		st.method, st.strategy = c.method, c.strategy
		stamp = &config.Stamp{}
		stampChanged = true
	} else {
		m := repo.Method(stamp.Name)
		s, err := e.strategy(m)
		if err != nil {
			return err
		}
		st.method, st.strategy = m, s
		if !e.allowed(repo, r, candidate{m, s}) {
			return mocheerrors.NewRetrievalExhaustedError(repo.Name,
				fmt.Sprintf("retrieval method %s is no longer allowed", m.Name), nil)
		}
		if stampChanged, err = e.revalidate(ctx, repo, stamp, candidate{m, s}); err != nil {
			return err
		}
	}
	st.target = e.target(repo, st.method)

	if stampChanged {
		stamp.Name = st.method.Name
		stamp.VersionNumber = st.method.Version
		stamp.Branch = st.method.Branch
		if err := e.writeStamp(repo, stamp); err != nil {
			return err
		}
	}

	if !st.strategy.NeedsBuild() {
		return nil
	}
	firstEver := !stamp.Built
	changed := stamp.Built && (stamp.BuildVersion != stamp.VersionNumber || stamp.BuildBranch != stamp.Branch)
	if !firstEver && !changed && !st.strategy.AlwaysUpdates() {
		return nil
	}
	if err := e.build(ctx, repo, st.target, firstEver || changed); err != nil {
		return mocheerrors.NewBuildFailure(repo.Name, err)
	}
	stamp.Built = true
	stamp.BuildVersion = stamp.VersionNumber
	stamp.BuildBranch = stamp.Branch
	return e.writeStamp(repo, stamp)
}

// revalidate brings an already retrieved repo up to date with its method and
// reports whether the retrieval part of the stamp must be rewritten.
func (e *Engine) revalidate(ctx context.Context, repo *config.Repo, stamp *config.Stamp, c candidate) (bool, error) {
	t := e.target(repo, c.method)
	switch {
	case stamp.Branch != c.method.Branch:
		e.rc.Splog.Info("Branch of %s changed from %q to %q", repo.Name, stamp.Branch, c.method.Branch)
		if err := e.clean(repo); err != nil {
			return false, err
		}
		return true, e.tryRetrieve(ctx, repo, c, t)
	case stamp.VersionNumber != c.method.Version:
		e.rc.Splog.Info("Version of %s changed from %q to %q", repo.Name, stamp.VersionNumber, c.method.Version)
		if c.strategy.CanUpdate() {
			return true, e.tryUpdate(ctx, repo, c, t)
		}
		if err := e.clean(repo); err != nil {
			return false, err
		}
		return true, e.tryRetrieve(ctx, repo, c, t)
	case c.strategy.AlwaysUpdates():
		return false, e.tryUpdate(ctx, repo, c, t)
	}
	e.rc.Splog.Debug("Repo %s is up to date", repo.Name)
	return false, nil
}

func (e *Engine) tryRetrieve(ctx context.Context, repo *config.Repo, c candidate, t *retrieval.Target) error {
	e.rc.Splog.Debug("Retrieving %s with %s", repo.Name, c.method.Name)
	if err := c.strategy.TryRetrieve(ctx, e.rc, t); err != nil {
		return e.exhausted(repo, []string{c.method.Name}, err)
	}
	e.rc.Record("retrieve", repo.Name, c.method.Name)
	return nil
}

func (e *Engine) tryUpdate(ctx context.Context, repo *config.Repo, c candidate, t *retrieval.Target) error {
	e.rc.Splog.Debug("Updating %s with %s", repo.Name, c.method.Name)
	if err := c.strategy.TryUpdate(ctx, e.rc, t); err != nil {
		return e.exhausted(repo, []string{c.method.Name}, err)
	}
	e.rc.Record("update", repo.Name, c.method.Name)
	return nil
}

func (e *Engine) exhausted(repo *config.Repo, tried []string, err error) error {
	if mocheerrors.IsFatal(err) {
		return err
	}
	return &mocheerrors.RetrievalExhaustedError{Repo: repo.Name, Reason: err.Error(), Tried: tried, Err: err}
}

func (e *Engine) fullRetrieve(ctx context.Context, repo *config.Repo, r restriction) (candidate, error) {
	candidates, err := e.candidates(repo, r)
	if err != nil {
		return candidate{}, err
	}
	if len(candidates) == 0 {
		return candidate{}, mocheerrors.NewRetrievalExhaustedError(repo.Name, "no retrieval method applies", nil)
	}

	var tried []string
	var last error
	for _, c := range candidates {
		e.rc.Splog.Debug("Trying %s for %s", c.method.Name, repo.Name)
		err := c.strategy.TryRetrieve(ctx, e.rc, e.target(repo, c.method))
		if err == nil {
			e.rc.Record("retrieve", repo.Name, c.method.Name)
			return c, nil
		}
		if mocheerrors.IsFatal(err) {
			return candidate{}, err
		}
		e.rc.Splog.Debug("Retrieval %s of %s failed: %v", c.method.Name, repo.Name, err)
		tried = append(tried, c.method.Name)
		last = err
		if err := e.clean(repo); err != nil {
			return candidate{}, err
		}
	}
	return candidate{}, e.exhausted(repo, tried, last)
}

func (e *Engine) build(ctx context.Context, repo *config.Repo, t *retrieval.Target, initial bool) error {
	e.rc.Splog.Info("Building %s", repo.Name)
	extra := template.Layer{"Initial": template.Value(fmt.Sprint(initial))}
	depth := e.rc.Depth()
	defer e.rc.Restore(depth)
	for _, ci := range repo.Build {
		if err := e.invoke(ctx, ci, config.ModeBuild, extra, t.Scope); err != nil {
			return err
		}
	}
	e.rc.Record("build", repo.Name, t.Method.Version)
	return nil
}
