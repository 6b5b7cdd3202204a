package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"moche.dev/moche/internal/archive"
	"moche.dev/moche/internal/git"
	"moche.dev/moche/internal/runtime"
)

var errNoFetcher = errors.New("downloads are not configured")

func (r *Registry) download(ctx context.Context, rc *runtime.Context, a Args) error {
	url, err := a.String("Url")
	if err != nil {
		return err
	}
	dest, err := a.String("DownloadDest")
	if err != nil {
		return err
	}
	if r.opts.Fetcher == nil {
		return errNoFetcher
	}
	return r.opts.Fetcher.Download(ctx, rc, url, rc.Abs(dest))
}

func uncompress(_ context.Context, rc *runtime.Context, a Args) error {
	path, err := a.String("Archive")
	if err != nil {
		return err
	}
	format, err := a.Optional("Format")
	if err != nil {
		return err
	}
	folder, err := a.Optional("FolderToUncompress")
	if err != nil {
		return err
	}
	dest, err := a.String("UncompressDest")
	if err != nil {
		return err
	}
	rc.Splog.Trace("Uncompress %s (%s) to %s", path, folder, dest)
	if rc.DryRun {
		return nil
	}
	return unpack(rc.Abs(path), rc.Abs(dest), format, folder)
}

// unpack extracts path and installs its folder subdirectory as dest. When dest
// already exists the entries are moved into it.
func unpack(path, dest, formatName, folder string) error {
	format, err := archive.ParseFormat(formatName)
	if formatName == "" || err != nil {
		format = archive.DetectFormat(path)
	}
	tmp := dest + ".extract"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	if err := archive.Extract(path, tmp, format); err != nil {
		return err
	}
	return moveInto(filepath.Join(tmp, filepath.FromSlash(folder)), dest)
}

func moveInto(src, dest string) error {
	if _, err := os.Stat(dest); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
			return err
		}
		return os.Rename(src, dest)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	for _, e := range entries {
		target := filepath.Join(dest, e.Name())
		if err := os.RemoveAll(target); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(src, e.Name()), target); err != nil {
			return err
		}
	}
	return nil
}

// revision returns Revision, falling back to the Version of the repo being retrieved.
func revision(a Args) (string, error) {
	rev, err := a.Optional("Revision")
	if err != nil || rev != "" {
		return rev, err
	}
	return a.Optional("Version")
}

func (r *Registry) githubRelease(ctx context.Context, rc *runtime.Context, a Args) error {
	release, err := a.String("Release")
	if err != nil {
		return err
	}
	pattern, err := a.String("Asset")
	if err != nil {
		return err
	}
	tag, err := a.Optional("Tag")
	if err != nil {
		return err
	}
	if tag == "" {
		if tag, err = a.Optional("Version"); err != nil {
			return err
		}
	}
	dest, err := a.String("Dest")
	if err != nil {
		return err
	}
	format, err := a.Optional("Format")
	if err != nil {
		return err
	}
	folder, err := a.Optional("FolderToUncompress")
	if err != nil {
		return err
	}

	rc.Splog.Trace("Release %s %s asset %s to %s", release, tag, pattern, dest)
	if rc.DryRun {
		rc.Splog.Info("Download release %s asset %s to %s", release, pattern, dest)
		return nil
	}
	if r.opts.Fetcher == nil {
		return errNoFetcher
	}
	asset, err := r.opts.Fetcher.ResolveRelease(ctx, release, tag, pattern)
	if err != nil {
		return err
	}
	dest = rc.Abs(dest)
	file := dest + "-" + asset.Name
	if err := r.opts.Fetcher.Download(ctx, rc, asset.URL, file); err != nil {
		return err
	}
	defer os.Remove(file)
	if format == "" {
		format = archive.DetectFormat(asset.Name).String()
	}
	return unpack(file, dest, format, folder)
}

func (r *Registry) gitOptions(rc *runtime.Context, a Args) (git.Options, error) {
	o := git.Options{Token: r.opts.GitToken}
	var err error
	if o.Dir, err = a.String("Dest"); err != nil {
		return o, err
	}
	o.Dir = rc.Abs(o.Dir)
	if o.Branch, err = a.Optional("Branch"); err != nil {
		return o, err
	}
	if o.Revision, err = revision(a); err != nil {
		return o, err
	}
	depth, err := a.Optional("Depth")
	if err != nil {
		return o, err
	}
	if depth != "" {
		if o.Depth, err = strconv.Atoi(depth); err != nil {
			return o, fmt.Errorf("invalid Depth %q", depth)
		}
	}
	o.Progress = io.Discard
	if !rc.HideExternalOutput {
		o.Progress = rc.Splog.Writer()
	}
	return o, nil
}

func (r *Registry) gitClone(ctx context.Context, rc *runtime.Context, a Args) error {
	o, err := r.gitOptions(rc, a)
	if err != nil {
		return err
	}
	if o.URL, err = a.String("Url"); err != nil {
		return err
	}
	rc.Splog.Info("Clone %s to %s", o.URL, o.Dir)
	if rc.DryRun {
		return nil
	}
	if o.Revision != "" {
		// a shallow clone may not contain the revision
		o.Depth = 0
	}
	return git.Clone(ctx, o)
}

func (r *Registry) gitPull(ctx context.Context, rc *runtime.Context, a Args) error {
	o, err := r.gitOptions(rc, a)
	if err != nil {
		return err
	}
	rc.Splog.Info("Update %s", o.Dir)
	if rc.DryRun {
		return nil
	}
	return git.Pull(ctx, o)
}
