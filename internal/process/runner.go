// Package process runs external programs in the working directory of a run.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/runtime"
)

// DefaultProbeTimeout bounds commands whose output is captured, such as version checks.
const DefaultProbeTimeout = time.Minute

// tailSize is how much of a failed command's error output is kept in the error.
const tailSize = 4096

// SplitArgs splits a command line with POSIX shell quoting rules.
func SplitArgs(commandLine string) ([]string, error) {
	args, err := shellquote.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("invalid command line %q: %w", commandLine, err)
	}
	return args, nil
}

// Resolve turns executable into a path that exec can start from dir. Names
// without a separator are looked up in PATH.
func Resolve(dir, executable string) (string, error) {
	if executable == "" {
		return "", fmt.Errorf("no executable given")
	}
	if !strings.ContainsAny(executable, `/\`) {
		return exec.LookPath(executable)
	}
	if !filepath.IsAbs(executable) {
		executable = filepath.Join(dir, executable)
	}
	return exec.LookPath(executable)
}

// Run starts executable with the arguments of commandLine in the current
// directory of rc, streaming its output to the console unless hidden. In a
// dry run the command is only logged.
func Run(ctx context.Context, rc *runtime.Context, executable, commandLine string) error {
	args, err := SplitArgs(commandLine)
	if err != nil {
		return err
	}
	rc.Splog.Debug("%s %s", executable, commandLine)
	if rc.DryRun {
		rc.Splog.Info("%s %s", executable, commandLine)
		return nil
	}

	path, err := Resolve(rc.Dir(), executable)
	if err != nil {
		return mocheerrors.NewCommandError(executable, args, "", "", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = rc.Dir()

	stderr := &tailBuffer{max: tailSize}
	cmd.Stdout = io.Discard
	if !rc.HideExternalOutput {
		cmd.Stdout = rc.Splog.Writer()
	}
	cmd.Stderr = stderr
	if !rc.HideExternalError {
		cmd.Stderr = io.MultiWriter(rc.Splog.Writer(), stderr)
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return mocheerrors.NewCommandError(executable, args, "", stderr.String(), err)
	}
	return nil
}

// Output runs executable with args in dir and returns its standard output.
// It is used for probes and runs even in a dry run.
func Output(ctx context.Context, dir, executable string, args []string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultProbeTimeout)
		defer cancel()
	}

	path, err := Resolve(dir, executable)
	if err != nil {
		return "", mocheerrors.NewCommandError(executable, args, "", "", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	var stdout bytes.Buffer
	stderr := &tailBuffer{max: tailSize}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
		return stdout.String(), mocheerrors.NewCommandError(executable, args, stdout.String(), stderr.String(), err)
	}
	return stdout.String(), nil
}

// IsNotFound reports whether err comes from a missing executable.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
