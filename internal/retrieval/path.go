package retrieval

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"moche.dev/moche/internal/config"
	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/process"
	"moche.dev/moche/internal/runtime"
)

// Path finds a tool already installed on the machine and checks its version.
type Path struct {
	Config *config.PathMethod
}

// TryRetrieve runs the repo version check and enforces VersionMin and VersionMax.
func (p *Path) TryRetrieve(ctx context.Context, rc *runtime.Context, t *Target) error {
	r := t.Repo
	exe, err := t.Expand(r.VersionCheckExecutable)
	if err != nil {
		return err
	}
	if exe == "" {
		return fmt.Errorf("repo %s declares no VersionCheckExecutable", r.Name)
	}
	dir, err := t.Expand(p.Config.Path)
	if err != nil {
		return err
	}
	commandLine, err := t.Expand(r.VersionCheckArguments)
	if err != nil {
		return err
	}
	args, err := process.SplitArgs(commandLine)
	if err != nil {
		return err
	}

	rc.Splog.Info("Searching for %s in path %s", exe, dir)
	if dir != "" && !strings.ContainsAny(exe, `/\`) {
		exe = filepath.Join(dir, exe)
	}
	out, err := process.Output(ctx, rc.Dir(), exe, args)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if process.IsNotFound(err) {
			rc.Splog.Debug("%s not found in path %s", exe, dir)
			return fmt.Errorf("%s not found: %w", exe, err)
		}
		return err
	}
	if r.VersionCheckRegex == "" {
		return nil
	}
	return checkVersion(rc, r, out)
}

func checkVersion(rc *runtime.Context, r *config.Repo, out string) error {
	re, err := regexp.Compile(r.VersionCheckRegex)
	if err != nil {
		return mocheerrors.NewSchemaError(0, "Repo", "VersionCheckRegex", err.Error())
	}
	var minVersion, maxVersion Version
	if r.VersionMin != "" {
		if minVersion, err = ParseVersion(r.VersionMin); err != nil {
			return mocheerrors.NewSchemaError(0, "Repo", "VersionMin", err.Error())
		}
	}
	if r.VersionMax != "" {
		if maxVersion, err = ParseVersion(r.VersionMax); err != nil {
			return mocheerrors.NewSchemaError(0, "Repo", "VersionMax", err.Error())
		}
	}

	found := ""
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if m != nil && r.VersionCheckRegexCaptureIndex < len(m) {
			found = m[r.VersionCheckRegexCaptureIndex]
			break
		}
	}
	if found == "" {
		rc.Splog.Error("Version not found in output")
		return fmt.Errorf("version of %s not found in output", r.Name)
	}
	v, err := ParseVersion(found)
	if err != nil {
		rc.Splog.Error("Bad version format %s", found)
		return err
	}
	if minVersion != nil && v.Compare(minVersion) < 0 {
		rc.Splog.Info("Version too old, expected at least %s, got %s", minVersion, v)
		return fmt.Errorf("%s %s is older than %s", r.Name, v, minVersion)
	}
	if maxVersion != nil && v.Compare(maxVersion) > 0 {
		rc.Splog.Info("Version too recent, expected at most %s, got %s", maxVersion, v)
		return fmt.Errorf("%s %s is newer than %s", r.Name, v, maxVersion)
	}
	rc.Splog.Debug("Found %s %s", r.Name, v)
	return nil
}

// TryUpdate checks the installed tool again.
func (p *Path) TryUpdate(ctx context.Context, rc *runtime.Context, t *Target) error {
	return p.TryRetrieve(ctx, rc, t)
}

// CanUpdate always returns true.
func (p *Path) CanUpdate() bool { return true }

// AlwaysUpdates always returns true: the installed tool may change between runs.
func (p *Path) AlwaysUpdates() bool { return true }

// NeedsBuild always returns false.
func (p *Path) NeedsBuild() bool { return false }

// ExecutablePath returns executable inside Path, or executable alone to let
// PATH resolve it.
func (p *Path) ExecutablePath(t *Target, executable string) (string, error) {
	dir, err := t.Expand(p.Config.Path)
	if err != nil || dir == "" {
		return executable, err
	}
	return filepath.Join(dir, executable), nil
}

// Type returns config.RetrievalPath.
func (p *Path) Type() config.RetrievalType { return config.RetrievalPath }
