package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// LauncherName returns the file name of the launcher script for goos.
func LauncherName(executable, goos string) string {
	name := executable[strings.LastIndexAny(executable, `/\`)+1:]
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if goos == "windows" {
		return name + ".bat"
	}
	return name + ".sh"
}

// WriteLauncher writes a script in dir that re-runs executable with
// --from-script and any extra arguments, and returns its path.
func WriteLauncher(dir, executable, goos string) (string, error) {
	path := filepath.Join(dir, LauncherName(executable, goos))
	var content string
	if goos == "windows" {
		content = fmt.Sprintf("@cd /d \"%%~dp0\" && \"%s\" --from-script %%*\r\n", executable)
	} else {
		content = fmt.Sprintf("#!/bin/sh\ncd \"$(dirname \"$0\")\" && exec %s --from-script \"$@\"\n", shellquote.Join(executable))
	}
	//nolint:gosec // the launcher must be executable
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return "", fmt.Errorf("failed to write launcher %s: %w", path, err)
	}
	return path, nil
}
