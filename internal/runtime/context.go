package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	"moche.dev/moche/internal/platform"
	"moche.dev/moche/internal/template"
	"moche.dev/moche/internal/tui"
)

// Recorder receives notable events of a run, such as retrievals and builds.
type Recorder interface {
	Event(kind, subject, detail string)
}

type nopRecorder struct{}

func (nopRecorder) Event(string, string, string) {}

// Context carries the state shared by every step of a run. It replaces
// process-wide state: the working directory is a stack held here and never
// changed with os.Chdir.
type Context struct {
	Splog    *tui.Splog
	Prompter *tui.Prompter
	Recorder Recorder
	RunID    string

	// DryRun logs side effects instead of performing them.
	DryRun             bool
	HideExternalOutput bool
	HideExternalError  bool

	// RootPath is the tools directory in which repos are retrieved.
	RootPath   string
	SourceRoot string
	BuildRoot  string
	Platform   platform.Platform
	GOOS       string

	dirs []string
}

// NewContext creates a context whose working directory is dir.
func NewContext(splog *tui.Splog, dir string) *Context {
	return &Context{
		Splog:    splog,
		Prompter: tui.NewPrompter(tui.InputNone),
		Recorder: nopRecorder{},
		Platform: platform.Current(),
		GOOS:     goruntime.GOOS,
		dirs:     []string{filepath.Clean(dir)},
	}
}

// Record forwards an event to the recorder.
func (c *Context) Record(kind, subject, detail string) {
	if c.Recorder != nil {
		c.Recorder.Event(kind, subject, detail)
	}
}

// Facts returns the arguments every invocation can reference, action aside.
func (c *Context) Facts() template.Layer {
	l := c.Platform.Facts(c.GOOS)
	l["RootPath"] = template.Value(c.RootPath)
	l["SourceRoot"] = template.Value(c.SourceRoot)
	l["BuildRoot"] = template.Value(c.BuildRoot)
	return l
}

// Dir returns the current working directory of the run.
func (c *Context) Dir() string {
	return c.dirs[len(c.dirs)-1]
}

// Abs resolves p against the current working directory.
func (c *Context) Abs(p string) string {
	if p == "" {
		return c.Dir()
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Dir(), p)
}

// PushDir makes path the working directory, remembering the previous one.
func (c *Context) PushDir(path string, create bool) error {
	abs, err := c.enter(path, create)
	if err != nil {
		return err
	}
	c.dirs = append(c.dirs, abs)
	return nil
}

// SetDir replaces the current working directory.
func (c *Context) SetDir(path string, create bool) error {
	abs, err := c.enter(path, create)
	if err != nil {
		return err
	}
	c.dirs[len(c.dirs)-1] = abs
	return nil
}

// PopDir returns to the directory active before the last PushDir.
func (c *Context) PopDir() error {
	if len(c.dirs) == 1 {
		return fmt.Errorf("directory stack is empty")
	}
	c.dirs = c.dirs[:len(c.dirs)-1]
	return nil
}

// Depth returns the number of pushed directories.
func (c *Context) Depth() int {
	return len(c.dirs) - 1
}

// Restore pops directories until Depth is depth.
func (c *Context) Restore(depth int) {
	for c.Depth() > depth {
		c.dirs = c.dirs[:len(c.dirs)-1]
	}
}

func (c *Context) enter(path string, create bool) (string, error) {
	abs := c.Abs(path)
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%s is not a directory", abs)
	case err == nil:
		return abs, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to enter %s: %w", abs, err)
	case !create:
		return "", fmt.Errorf("directory %s does not exist", abs)
	case c.DryRun:
		c.Splog.Info("mkdir %s", abs)
		return abs, nil
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", abs, err)
	}
	return abs, nil
}
