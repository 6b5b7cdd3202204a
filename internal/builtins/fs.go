package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"moche.dev/moche/internal/runtime"
)

func changeDir(rc *runtime.Context, a Args, name string, enter func(string, bool) error) error {
	create, err := a.Bool("Create", true)
	if err != nil {
		return err
	}
	path, err := a.String("Path")
	if err != nil {
		return err
	}
	rc.Splog.Trace("%s %s", name, path)
	// nothing was created before this point in a dry run
	return enter(path, create || rc.DryRun)
}

func pushd(_ context.Context, rc *runtime.Context, a Args) error {
	return changeDir(rc, a, "pushd", rc.PushDir)
}

func cd(_ context.Context, rc *runtime.Context, a Args) error {
	return changeDir(rc, a, "cd", rc.SetDir)
}

func popd(_ context.Context, rc *runtime.Context, _ Args) error {
	rc.Splog.Trace("popd")
	return rc.PopDir()
}

func mkdir(_ context.Context, rc *runtime.Context, a Args) error {
	path, err := a.String("Path")
	if err != nil {
		return err
	}
	rc.Splog.Trace("mkdir %s", path)
	if rc.DryRun {
		return nil
	}
	recursive, err := a.Bool("Recursive", true)
	if err != nil {
		return err
	}
	ignoreExisting, err := a.Bool("IgnoreExisting", true)
	if err != nil {
		return err
	}

	path = rc.Abs(path)
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s already exists and is a file instead of a directory", path)
	case err == nil && !ignoreExisting:
		return fmt.Errorf("%s already exists", path)
	case err == nil:
		return nil
	}
	if recursive {
		return os.MkdirAll(path, 0750)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("parent directory %s not found", filepath.Dir(path))
	}
	return os.Mkdir(path, 0750)
}

func rm(_ context.Context, rc *runtime.Context, a Args) error {
	path, err := a.String("Path")
	if err != nil {
		return err
	}
	rc.Splog.Trace("rm %s", path)
	if rc.DryRun {
		return nil
	}
	recursive, err := a.Bool("Recursive", true)
	if err != nil {
		return err
	}
	ignoreUnexisting, err := a.Bool("IgnoreUnexisting", true)
	if err != nil {
		return err
	}

	path = rc.Abs(path)
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && ignoreUnexisting:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("file %s not found for deletion", path)
	case err != nil:
		return err
	case info.IsDir() && recursive:
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

type transfer struct {
	src, dest        string
	overwrite        bool
	ignoreUnexisting bool
	createDest       bool
}

func readTransfer(rc *runtime.Context, a Args, verb string) (*transfer, error) {
	src, err := a.String(verb + "Source")
	if err != nil {
		return nil, err
	}
	dest, err := a.String(verb + "Dest")
	if err != nil {
		return nil, err
	}
	t := &transfer{src: rc.Abs(src), dest: rc.Abs(dest)}
	if t.overwrite, err = a.Bool("Overwrite", true); err != nil {
		return nil, err
	}
	if t.ignoreUnexisting, err = a.Bool("IgnoreUnexisting", false); err != nil {
		return nil, err
	}
	if t.createDest, err = a.Bool("CreateDest", true); err != nil {
		return nil, err
	}
	rc.Splog.Trace("%s %s to %s", verb, src, dest)
	return t, nil
}

// prepare returns the source info, or nil when a missing source is ignored.
func (t *transfer) prepare() (fs.FileInfo, error) {
	info, err := os.Stat(t.src)
	if errors.Is(err, fs.ErrNotExist) {
		if t.ignoreUnexisting {
			return nil, nil
		}
		return nil, fmt.Errorf("file %s not found", t.src)
	}
	if err != nil {
		return nil, err
	}
	if t.createDest {
		if err := os.MkdirAll(filepath.Dir(t.dest), 0750); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func move(_ context.Context, rc *runtime.Context, a Args) error {
	t, err := readTransfer(rc, a, "Move")
	if err != nil || rc.DryRun {
		return err
	}
	info, err := t.prepare()
	if err != nil || info == nil {
		return err
	}
	if exists(t.dest) {
		if !t.overwrite {
			return fmt.Errorf("%s already exists in %s", filepath.Base(t.src), filepath.Dir(t.dest))
		}
		if err := os.RemoveAll(t.dest); err != nil {
			return err
		}
	}
	return os.Rename(t.src, t.dest)
}

func copyFiles(_ context.Context, rc *runtime.Context, a Args) error {
	t, err := readTransfer(rc, a, "Copy")
	if err != nil || rc.DryRun {
		return err
	}
	info, err := t.prepare()
	if err != nil || info == nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(t.src, t.dest, info.Mode(), t.overwrite)
	}
	return filepath.WalkDir(t.src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(t.src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(t.dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode(), t.overwrite)
	})
}

func copyFile(src, dest string, mode fs.FileMode, overwrite bool) error {
	if !overwrite && exists(dest) {
		return fmt.Errorf("file %s already exists in %s", filepath.Base(dest), filepath.Dir(dest))
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
