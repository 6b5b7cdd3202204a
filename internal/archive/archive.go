// Package archive unpacks the archive formats tools are distributed in.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format is an archive format.
type Format int

// Supported formats.
const (
	Unknown Format = iota
	Zip
	Tar
	TarGz
	TarXz
	TarZst
)

var formatNames = []string{"unknown", "zip", "tar", "tar.gz", "tar.xz", "tar.zst"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return formatNames[0]
}

var extensions = []struct {
	ext    string
	format Format
}{
	{".zip", Zip},
	{".tar.gz", TarGz},
	{".tgz", TarGz},
	{".tar.xz", TarXz},
	{".txz", TarXz},
	{".tar.zst", TarZst},
	{".tzst", TarZst},
	{".tar", Tar},
}

// DetectFormat guesses the format from the extension of name, which may be a
// file name or a URL.
func DetectFormat(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	lower := strings.ToLower(name)
	for _, e := range extensions {
		if strings.HasSuffix(lower, e.ext) {
			return e.format
		}
	}
	return Unknown
}

// ParseFormat reads a format name such as "zip", "tgz" or "tar.xz".
func ParseFormat(s string) (Format, error) {
	f := DetectFormat("." + strings.TrimPrefix(s, "."))
	if f == Unknown {
		return Unknown, fmt.Errorf("unknown archive format %q", s)
	}
	return f, nil
}

// Extract unpacks the archive at path into dest, creating dest if needed.
// Unknown detects the format from path.
func Extract(path, dest string, format Format) error {
	if format == Unknown {
		format = DetectFormat(path)
	}
	if err := os.MkdirAll(dest, 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if format == Zip {
		return extractZip(path, dest)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch format {
	case Tar:
		r = f
	case TarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case TarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xzr
	case TarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return fmt.Errorf("unknown archive format for %s", filepath.Base(path))
	}
	return extractTar(r, dest)
}

// target joins name to dest, refusing names that would escape it.
func target(dest, name string) (string, error) {
	p := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the destination", name)
	}
	return p, nil
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar: %w", err)
		}
		p, err := target(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(p, 0750); err != nil {
				return fmt.Errorf("failed to create dir %s: %w", p, err)
			}
		case tar.TypeReg:
			if err := writeFile(p, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
				return fmt.Errorf("failed to create parent dir: %w", err)
			}
			if err := os.Symlink(hdr.Linkname, p); err != nil && !os.IsExist(err) {
				return fmt.Errorf("failed to create symlink %s -> %s: %w", p, hdr.Linkname, err)
			}
		}
	}
}

func extractZip(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		p, err := target(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(p, 0750); err != nil {
				return fmt.Errorf("failed to create dir %s: %w", p, err)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0644
		}
		err = writeFile(p, rc, mode)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(p string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}
	out, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", p, err)
	}
	//nolint:gosec // archives come from declared tool sources
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write file %s: %w", p, err)
	}
	return out.Close()
}
