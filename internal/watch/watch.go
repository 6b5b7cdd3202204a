// Package watch re-runs a function when the documents of a project change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of changes must settle before a re-run.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Roots are the directories to watch.
	Roots []string
	// Recursive also watches every subdirectory of the roots.
	Recursive bool
	// Match selects the files whose changes trigger a run.
	Match    func(path string) bool
	Debounce time.Duration
	// OnError receives watcher errors. They never stop the watch.
	OnError func(error)
}

// Watcher watches document directories.
type Watcher struct {
	opts    Options
	watcher *fsnotify.Watcher
}

// New creates a watcher over opts.Roots.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Match == nil {
		opts.Match = func(string) bool { return true }
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{opts: opts, watcher: fw}
	for _, root := range opts.Roots {
		if err := w.add(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(dir string) error {
	if !w.opts.Recursive {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls fn once the changes to matching files have settled, until ctx is
// cancelled. The error of fn is reported to OnError and does not stop the watch.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string) error) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && w.opts.Recursive {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						w.opts.OnError(err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) || !w.opts.Match(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.opts.OnError(err)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			if err := fn(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.opts.OnError(err)
			}
		}
	}
}
