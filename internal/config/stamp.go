package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"moche.dev/moche/internal/document"
)

// StampFileName is the name of the stamp stored at the root of each repo directory.
const StampFileName = "version.txt"

// Repo directory layout under the tools root.
const (
	SourceDir = "src"
	BinaryDir = "bin"
	TempDir   = "tmp"
)

// Stamp records which retrieval method produced a repo directory and which
// version of it was last built.
type Stamp struct {
	Name          string `yaml:"Name"`
	VersionNumber string `yaml:"VersionNumber,omitempty"`
	Branch        string `yaml:"Branch,omitempty"`
	BuildVersion  string `yaml:"BuildVersion,omitempty"`
	BuildBranch   string `yaml:"BuildBranch,omitempty"`
	Built         bool   `yaml:"Built,omitempty"`
}

// StampSchema describes version.txt.
var StampSchema = document.NewSchema("Version",
	document.String("Name", func(s *Stamp) *string { return &s.Name }),
	document.String("VersionNumber", func(s *Stamp) *string { return &s.VersionNumber }),
	document.String("Branch", func(s *Stamp) *string { return &s.Branch }),
	document.String("BuildVersion", func(s *Stamp) *string { return &s.BuildVersion }),
	document.String("BuildBranch", func(s *Stamp) *string { return &s.BuildBranch }),
	document.Bool("Built", func(s *Stamp) *bool { return &s.Built }),
)

// StampPath returns the stamp location of repo under root.
func StampPath(root, repo string) string {
	return filepath.Join(root, repo, StampFileName)
}

// ReadStamp loads the stamp at path. A missing file yields nil and no error.
func ReadStamp(path string) (*Stamp, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return document.Load(StampSchema, path)
}

// WriteStamp stores s at path.
func WriteStamp(path string, s *Stamp) error {
	return document.WriteFile(path, s, StampSchema)
}
