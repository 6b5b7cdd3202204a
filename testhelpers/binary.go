package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// binaryDir holds the built binary once the first test asked for it.
var binaryDir string

var mocheBinary = sync.OnceValues(func() (string, error) {
	gomod, err := exec.Command("go", "env", "GOMOD").Output()
	if err != nil {
		return "", fmt.Errorf("go env GOMOD: %w", err)
	}
	root := filepath.Dir(strings.TrimSpace(string(gomod)))

	dir, err := os.MkdirTemp("", "moche-bin-*")
	if err != nil {
		return "", err
	}
	binaryDir = dir

	path := filepath.Join(dir, "moche")
	build := exec.Command("go", "build", "-o", path, "./cmd/moche")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		return "", fmt.Errorf("go build ./cmd/moche in %s: %w\n%s", root, err, out)
	}
	return path, nil
})

// MocheBinary returns the moche binary shared by every test of the package,
// building it on first use.
func MocheBinary(t *testing.T) string {
	t.Helper()
	path, err := mocheBinary()
	if err != nil {
		t.Fatalf("failed to build moche: %v", err)
	}
	return path
}

// TestMain runs the tests of a package that drives the moche binary, with
// colors and interactive prompts turned off, then removes the binary.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	_ = os.Setenv("MOCHE_TEST_NO_INTERACTIVE", "1")

	code := m.Run()
	if binaryDir != "" {
		_ = os.RemoveAll(binaryDir)
	}
	os.Exit(code)
}
