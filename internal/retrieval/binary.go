package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"moche.dev/moche/internal/archive"
	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/runtime"
)

const downloadName = "dl.tmp"

// Binary downloads a prebuilt archive for the host platform and installs the
// extracted folder as the repo bin directory.
type Binary struct {
	Config  *config.BinaryMethod
	Fetcher *fetch.Fetcher
}

// TryRetrieve downloads and unpacks the archive declared for rc.Platform.
func (b *Binary) TryRetrieve(ctx context.Context, rc *runtime.Context, t *Target) error {
	file, ok := b.Config.Url.Get(rc.Platform)
	if !ok {
		rc.Splog.Debug("No url for %s", rc.Platform)
		return fmt.Errorf("no url for %s", rc.Platform)
	}
	folder, err := t.Expand(file.FolderToExtract)
	if err != nil {
		return err
	}

	url, name := "", ""
	if file.Release != "" {
		if rc.DryRun {
			rc.Splog.Info("Download release %s asset %s (%s)", file.Release, file.Asset, folder)
			return nil
		}
		if b.Fetcher == nil {
			return errors.New("release downloads are not configured")
		}
		asset, err := b.Fetcher.ResolveRelease(ctx, file.Release, t.Method.Version, file.Asset)
		if err != nil {
			return err
		}
		url, name = asset.URL, asset.Name
	} else {
		if url, err = t.Expand(file.Url); err != nil {
			return err
		}
		name = url
	}
	if url == "" {
		return fmt.Errorf("no url for %s", rc.Platform)
	}

	if rc.DryRun {
		rc.Splog.Info("Download %s (%s)", url, folder)
		return nil
	}
	if b.Fetcher == nil {
		return errors.New("downloads are not configured")
	}

	format := archive.DetectFormat(name)
	if format == archive.Unknown {
		format = archive.DetectFormat(url)
	}

	tmp := t.TempPath()
	dl := filepath.Join(tmp, downloadName)
	if err := b.Fetcher.Download(ctx, rc, url, dl); err != nil {
		return err
	}
	extracted := filepath.Join(tmp, "extract")
	if err := os.RemoveAll(extracted); err != nil {
		return fmt.Errorf("failed to clear %s: %w", extracted, err)
	}
	if err := archive.Extract(dl, extracted, format); err != nil {
		return err
	}

	bin := t.BinaryPath()
	if err := os.RemoveAll(bin); err != nil {
		return fmt.Errorf("failed to clear %s: %w", bin, err)
	}
	if err := os.Rename(filepath.Join(extracted, filepath.FromSlash(folder)), bin); err != nil {
		return fmt.Errorf("failed to install %s: %w", folder, err)
	}
	return os.RemoveAll(tmp)
}

// TryUpdate always fails: a new version is installed by retrieving again.
func (b *Binary) TryUpdate(context.Context, *runtime.Context, *Target) error {
	return errors.New("binary retrieval cannot update")
}

// CanUpdate always returns false.
func (b *Binary) CanUpdate() bool { return false }

// AlwaysUpdates always returns false.
func (b *Binary) AlwaysUpdates() bool { return false }

// NeedsBuild always returns false.
func (b *Binary) NeedsBuild() bool { return false }

// ExecutablePath returns executable inside the repo bin directory.
func (b *Binary) ExecutablePath(t *Target, executable string) (string, error) {
	return filepath.Join(t.BinaryPath(), executable), nil
}

// Type returns config.RetrievalBinary.
func (b *Binary) Type() config.RetrievalType { return config.RetrievalBinary }
