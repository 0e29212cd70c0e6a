// Package watch regenerates a document whenever the tree under a root
// changes. Events are coalesced: a regeneration starts once the tree has
// been quiet for the debounce interval, and runs never overlap.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
)

var logger = logging.Get("watch")

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a regeneration.
	Debounce time.Duration

	// Ignore reports paths whose events must not trigger a regeneration,
	// such as the output document itself.
	Ignore func(path string) bool
}

// Watcher watches a directory tree for filesystem changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	mu       sync.RWMutex
	closed   bool
	debounce time.Duration
	ignore   func(string) bool
}

// New creates a new Watcher.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsw,
		paths:    make(map[string]bool),
		debounce: debounce,
		ignore:   opts.Ignore,
	}, nil
}

// Watch starts watching a path recursively.
// It adds watches to the root directory and all subdirectories.
// Symlinks are not followed to avoid loops.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil // Only watch directories
	}

	return w.addTree(absRoot)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logger.Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Watched returns the number of directories being watched.
func (w *Watcher) Watched() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// Run starts the event loop and blocks until ctx is cancelled or onSettle
// fails. onSettle runs once the tree has been quiet for the debounce
// interval after one or more relevant events. It is never invoked
// concurrently with itself.
func (w *Watcher) Run(ctx context.Context, onSettle func(ctx context.Context) error) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	pending := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			pending++
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)

		case <-timer.C:
			logger.Debug("tree settled", "events", pending)
			pending = 0
			if err := onSettle(ctx); err != nil {
				return err
			}
		}
	}
}

// handleEvent updates the watch set and reports whether the event should
// trigger a regeneration.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if w.ignore != nil && w.ignore(event.Name) {
		return false
	}
	if event.Op == fsnotify.Chmod {
		return false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename is a remove here; the new name arrives as a create
		w.handleRemove(event.Name)
	}

	logger.Debug("change", "path", event.Name, "op", event.Op.String())
	return true
}

// handleCreate watches newly created directories, including any
// subdirectories created with them.
func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return // Removed already
	}
	if info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
		return
	}
	_ = w.addTree(path)
}

// handleRemove drops watches for a removed directory and its children.
func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
