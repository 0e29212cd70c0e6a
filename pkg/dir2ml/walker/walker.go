// Package walker enumerates a directory tree depth-first in a deterministic,
// case-insensitive order.
//
// Traversal uses an explicit stack of directory frames instead of recursion,
// so all mutable run state stays with the caller's visit function.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

var logger = logging.Get("walker")

// SkipDir may be returned by a visit function for a directory entry to
// prevent the walker from descending into it.
var SkipDir = fs.SkipDir

// Kind distinguishes the entry types the walker yields.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindDir is a directory.
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Entry is a single file or directory yielded by Walk.
type Entry struct {
	// RelPath holds the path segments relative to the walk root.
	RelPath []string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	Kind Kind

	// Info is the lstat result for the entry.
	Info fs.FileInfo

	// Depth is 1 for direct children of the root.
	Depth int
}

// Name returns the slash-separated relative path.
func (e Entry) Name() string {
	return strings.Join(e.RelPath, "/")
}

// Options configures a Walker.
type Options struct {
	// Recursive enables descending into subdirectories.
	Recursive bool

	// MaxDepth limits how deep entries are yielded. Zero means unlimited.
	MaxDepth int

	// Exclude contains glob patterns matched against the slash-separated
	// relative path and against the entry name.
	Exclude []string

	// OnError is called when a directory cannot be listed or an entry
	// cannot be stat'ed. Returning nil skips the entry (and its subtree)
	// and continues; returning an error aborts the walk with it.
	// A nil OnError aborts on the first error.
	OnError func(path string, err error) error
}

// Walker walks one directory tree.
type Walker struct {
	root     string
	opts     Options
	excludes []glob.Glob
}

// New validates root and compiles the exclusion patterns.
func New(root string, opts Options) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, types.DirectoryError("stat", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, os.ErrInvalid)
	}

	excludes, err := compilePatterns(opts.Exclude)
	if err != nil {
		return nil, err
	}

	return &Walker{root: abs, opts: opts, excludes: excludes}, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Root returns the absolute walk root.
func (w *Walker) Root() string {
	return w.root
}

// frame is one directory on the traversal stack.
type frame struct {
	abs     string
	rel     []string
	depth   int
	entries []os.DirEntry
	next    int
}

// Walk visits every entry under the root. Within a directory, entries are
// visited in Compare order and a subdirectory's contents are visited at the
// subdirectory's sorted position. Symlinks and special files are skipped.
func (w *Walker) Walk(ctx context.Context, visit func(Entry) error) error {
	entries, err := readDir(w.root)
	if err != nil {
		return types.DirectoryError("readdir", w.root, err)
	}

	stack := []*frame{{abs: w.root, entries: entries}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		de := top.entries[top.next]
		top.next++

		name := de.Name()
		if name == "." || name == ".." {
			continue
		}

		e := Entry{
			RelPath: append(slices.Clip(top.rel), name),
			AbsPath: filepath.Join(top.abs, name),
			Depth:   top.depth + 1,
		}
		if w.opts.MaxDepth > 0 && e.Depth > w.opts.MaxDepth {
			continue
		}
		if w.excluded(e) {
			logger.Debug("excluded", "path", e.Name())
			continue
		}

		switch {
		case de.IsDir():
			if !w.opts.Recursive {
				continue
			}
			e.Kind = KindDir
			if e.Info, err = de.Info(); err != nil {
				if err := w.fail(e.AbsPath, types.DirectoryError("stat", e.AbsPath, err)); err != nil {
					return err
				}
				continue
			}
			if err := visit(e); err != nil {
				if errors.Is(err, SkipDir) {
					continue
				}
				return err
			}
			// Children would lie past the depth limit; do not list them.
			if w.opts.MaxDepth > 0 && e.Depth >= w.opts.MaxDepth {
				continue
			}
			children, err := readDir(e.AbsPath)
			if err != nil {
				if err := w.fail(e.AbsPath, types.DirectoryError("readdir", e.AbsPath, err)); err != nil {
					return err
				}
				continue
			}
			stack = append(stack, &frame{abs: e.AbsPath, rel: e.RelPath, depth: e.Depth, entries: children})

		case de.Type().IsRegular():
			e.Kind = KindFile
			if e.Info, err = de.Info(); err != nil {
				if err := w.fail(e.AbsPath, types.FileError("stat", e.AbsPath, err)); err != nil {
					return err
				}
				continue
			}
			if err := visit(e); err != nil && !errors.Is(err, SkipDir) {
				return err
			}

		default:
			logger.Debug("skipping non-regular entry", "path", e.AbsPath, "mode", de.Type().String())
		}
	}
	return nil
}

func (w *Walker) fail(path string, err error) error {
	if w.opts.OnError == nil {
		return err
	}
	return w.opts.OnError(path, err)
}

func (w *Walker) excluded(e Entry) bool {
	if len(w.excludes) == 0 {
		return false
	}
	rel := e.Name()
	base := e.RelPath[len(e.RelPath)-1]
	for _, g := range w.excludes {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// readDir lists dir sorted by Compare.
func readDir(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		return Compare(a.Name(), b.Name())
	})
	return entries, nil
}

// Compare orders names case-insensitively. Names that differ only in case
// are ordered bytewise so the order is total and stable across runs.
func Compare(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
