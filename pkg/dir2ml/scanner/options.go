// Package scanner runs one dir2ml generation: it walks the tree, hashes
// each file once, builds its locations and feeds it through duplicate
// detection, producing the ordered survivors for the output formatters.
package scanner

import (
	"errors"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/dedup"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/locator"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// ErrNoRoot is returned when Options.Root is empty.
var ErrNoRoot = errors.New("directory is required")

// Hasher computes the digests of a file. *hasher.Engine satisfies it.
type Hasher interface {
	HashFile(path string) (hasher.Digests, int64, error)
}

// Options configures a Scanner.
type Options struct {
	// Root is the directory to describe.
	Root string

	// Recursive enables descending into subdirectories.
	Recursive bool

	// MaxDepth limits traversal depth. Zero means unlimited.
	MaxDepth int

	// Exclude contains glob patterns for entries to skip.
	Exclude []string

	// MinSize excludes files smaller than this many bytes.
	MinSize int64

	// Algorithms are the digests computed for every file.
	Algorithms hasher.Set

	// Dedup selects the duplicate handling mode.
	Dedup dedup.Mode

	// IgnoreModTime allows files with different mtimes to be merged.
	IgnoreModTime bool

	// Collisions selects what happens on a digest collision.
	Collisions dedup.CollisionPolicy

	// Locators selects the location kinds attached to each file.
	Locators locator.Options

	// Strict makes unreadable directories and files fatal instead of
	// skipping and reporting them.
	Strict bool

	// Estimate pre-counts files and bytes so progress carries totals.
	Estimate bool

	// OnProgress is called periodically with progress snapshots. It is
	// called from the scanning goroutine.
	OnProgress func(types.ScanProgress)

	// Hasher overrides the hash engine. Nil uses hasher.New(Algorithms).
	Hasher Hasher

	// Comparer overrides the byte comparison used to verify duplicates.
	Comparer dedup.Comparer
}

// DefaultOptions returns options for a recursive sha256-only run without
// duplicate detection.
func DefaultOptions() Options {
	return Options{
		Recursive:  true,
		Algorithms: hasher.NewSet(hasher.SHA256),
		Dedup:      dedup.Off,
		Collisions: dedup.PolicyWarn,
	}
}

// Validate checks the options and fills in defaults.
func (o *Options) Validate() error {
	if o.Root == "" {
		return ErrNoRoot
	}
	if len(o.Algorithms) == 0 {
		o.Algorithms = hasher.NewSet(hasher.SHA256)
	}
	if o.MaxDepth < 0 {
		o.MaxDepth = 0
	}
	return o.dedupOptions().Validate(o.Algorithms)
}

func (o *Options) dedupOptions() dedup.Options {
	return dedup.Options{
		Mode:          o.Dedup,
		IgnoreModTime: o.IgnoreModTime,
		Policy:        o.Collisions,
		Comparer:      o.Comparer,
	}
}
