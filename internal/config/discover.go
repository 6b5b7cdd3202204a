package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FindCatalogs returns the *.moche files in root, sorted, including those of
// subdirectories when recursive is set. A missing root yields no files.
func FindCatalogs(root string, recursive bool) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == CatalogExtension {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s for %s files: %w", root, CatalogExtension, err)
	}
	sort.Strings(files)
	return files, nil
}

// ResolveToolsRoot returns ToolsConfigRootPath resolved against dir.
func (p *Project) ResolveToolsRoot(dir string) string {
	if filepath.IsAbs(p.ToolsConfigRootPath) {
		return filepath.Clean(p.ToolsConfigRootPath)
	}
	return filepath.Join(dir, p.ToolsConfigRootPath)
}
