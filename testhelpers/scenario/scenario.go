// Package scenario provides a high-level test scenario that combines a Scene
// with the moche binary to provide a terse API for integration tests.
package scenario

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"moche.dev/moche/testhelpers"
)

// Scenario runs the moche binary against a Scene.
type Scenario struct {
	T          *testing.T
	Scene      *testhelpers.Scene
	BinaryPath string
}

// Result is the outcome of one moche invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// NewScenario creates a new Scenario with an optional setup function. It is
// safe for parallel tests.
func NewScenario(t *testing.T, setup testhelpers.SceneSetup) *Scenario {
	t.Helper()
	return &Scenario{
		T:     t,
		Scene: testhelpers.NewScene(t, setup),
	}
}

// WithBinaryPath sets the path to the moche binary for Run methods.
func (s *Scenario) WithBinaryPath(path string) *Scenario {
	s.BinaryPath = path
	return s
}

// Write writes a file in the source directory.
func (s *Scenario) Write(name, content string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.WriteSource(name, content))
	return s
}

// WithTool writes a tool document.
func (s *Scenario) WithTool(name, content string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.WriteTool(name, content))
	return s
}

// Exec runs moche with args in dir, using the scene settings.
func (s *Scenario) Exec(dir string, args ...string) *Result {
	s.T.Helper()
	if s.BinaryPath == "" {
		s.T.Fatal("BinaryPath not set. Call WithBinaryPath first.")
	}
	args = append([]string{"--settings", s.Scene.Settings, "--no-color"}, args...)
	cmd := exec.Command(s.BinaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "MOCHE_TEST_NO_INTERACTIVE=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		s.T.Fatalf("failed to run moche %s: %v", strings.Join(args, " "), err)
	}
	return res
}

// RunCli runs moche with args from the build directory, creating it, and
// requires success.
func (s *Scenario) RunCli(args ...string) *Result {
	s.T.Helper()
	require.NoError(s.T, os.MkdirAll(s.Scene.Build, 0750))
	res := s.Exec(s.Scene.Build, args...)
	require.Zero(s.T, res.ExitCode, "CLI command failed: moche %v\nStdout: %s\nStderr: %s", args, res.Stdout, res.Stderr)
	return res
}

// RunExpectError runs moche with args from the build directory and requires failure.
func (s *Scenario) RunExpectError(args ...string) *Result {
	s.T.Helper()
	require.NoError(s.T, os.MkdirAll(s.Scene.Build, 0750))
	res := s.Exec(s.Scene.Build, args...)
	require.NotZero(s.T, res.ExitCode, "expected CLI command to fail: moche %v\nStdout: %s", args, res.Stdout)
	return res
}
