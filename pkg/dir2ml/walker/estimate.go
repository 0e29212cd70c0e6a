package walker

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// Totals is the result of Estimate.
type Totals struct {
	Dirs  int64
	Files int64
	Bytes int64
}

// Estimate counts the files and bytes a Walk over the same root and
// options would yield. It walks in parallel and ignores errors, so the
// result is only suitable for progress reporting.
func (w *Walker) Estimate(ctx context.Context) (Totals, error) {
	var dirs, files, bytes atomic.Int64

	conf := fastwalk.Config{
		Follow: false,
	}

	err := fastwalk.Walk(&conf, w.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || path == w.root {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		segs := strings.Split(filepath.ToSlash(rel), "/")
		e := Entry{RelPath: segs, AbsPath: path, Depth: len(segs)}

		if (w.opts.MaxDepth > 0 && e.Depth > w.opts.MaxDepth) || w.excluded(e) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			if !w.opts.Recursive {
				return fastwalk.SkipDir
			}
			dirs.Add(1)
			if w.opts.MaxDepth > 0 && e.Depth >= w.opts.MaxDepth {
				return fastwalk.SkipDir
			}
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files.Add(1)
			bytes.Add(info.Size())
		}
		return nil
	})
	if err != nil && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return Totals{}, err
	}

	return Totals{Dirs: dirs.Load(), Files: files.Load(), Bytes: bytes.Load()}, nil
}
