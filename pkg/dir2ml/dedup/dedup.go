// Package dedup detects files with identical content and merges their
// locations.
//
// Records are offered one at a time in traversal order. A record whose key
// digest matches an earlier record is checked against it by size, by
// modification time (unless ignored) and finally by a byte-for-byte
// comparison. Confirmed duplicates share a single location set; in
// Consolidate mode the later record is dropped. Identical digests over
// different content are counted as collisions and never merged.
package dedup

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/record"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

var logger = logging.Get("dedup")

// DefaultKey is the digest algorithm used to index records.
const DefaultKey = hasher.SHA256

var (
	// ErrDigestRequired is returned when dedup is enabled but the key
	// digest is not among the requested algorithms.
	ErrDigestRequired = errors.New("duplicate detection requires the sha256 digest")

	// ErrDigestCollision is returned under PolicyFail when two files share
	// a digest but differ in content.
	ErrDigestCollision = errors.New("digest collision")

	// ErrMissingDigest is returned when an offered record lacks the key digest.
	ErrMissingDigest = errors.New("record has no key digest")
)

// Outcome describes what Offer did with a record.
type Outcome int

const (
	// Unique means no duplicate was found and the record was indexed.
	Unique Outcome = iota
	// Duplicate means the record joined an earlier group and was kept.
	Duplicate
	// Consolidated means the record joined an earlier group and was dropped.
	Consolidated
)

func (o Outcome) String() string {
	switch o {
	case Unique:
		return "unique"
	case Duplicate:
		return "duplicate"
	case Consolidated:
		return "consolidated"
	default:
		return "unknown"
	}
}

// Options configures an Index.
type Options struct {
	Mode Mode

	// Key is the digest used for lookups. Zero means DefaultKey.
	Key hasher.Algorithm

	// IgnoreModTime lets files with different modification times be
	// compared and merged.
	IgnoreModTime bool

	Policy CollisionPolicy

	// Comparer verifies candidate pairs. Nil means CompareFiles.
	Comparer Comparer
}

func (o Options) key() hasher.Algorithm {
	if o.Key == 0 {
		return DefaultKey
	}
	return o.Key
}

// Validate checks that the options can run against records hashed with algs.
func (o Options) Validate(algs hasher.Set) error {
	if o.Mode == Off {
		return nil
	}
	if !algs.Has(o.key()) {
		if o.key() == hasher.SHA256 {
			return ErrDigestRequired
		}
		return fmt.Errorf("duplicate detection requires the %s digest", o.key())
	}
	return nil
}

// Index is the digest index of one run. It is not safe for concurrent use.
type Index struct {
	store    *record.Store
	opts     Options
	comparer Comparer

	byDigest map[string][]record.Handle

	collisions  []types.Collision
	merges      int64
	comparisons int64
}

// New returns an Index over store.
func New(store *record.Store, opts Options) *Index {
	cmp := opts.Comparer
	if cmp == nil {
		cmp = ComparerFunc(CompareFiles)
	}
	return &Index{
		store:    store,
		opts:     opts,
		comparer: cmp,
		byDigest: make(map[string][]record.Handle),
	}
}

// Mode returns the index mode.
func (ix *Index) Mode() Mode {
	return ix.opts.Mode
}

// Offer runs duplicate detection for h, which must already be in the store
// with its digests populated. A verification read failure is returned as
// an error and leaves the record unindexed.
func (ix *Index) Offer(h record.Handle) (Outcome, error) {
	if ix.opts.Mode == Off {
		return Unique, nil
	}

	rec := ix.store.Get(h)
	key, ok := rec.Digests.Key(ix.opts.key())
	if !ok {
		return Unique, fmt.Errorf("%s: %w", rec.Name(), ErrMissingDigest)
	}

	matched := false
	// Groups already shown to differ from rec. Their other members hold the
	// same content, so comparing against them would recount the collision.
	var differ map[record.Handle]bool

	for _, e := range ix.byDigest[key] {
		cand := ix.store.Get(e)
		if cand.Size != rec.Size {
			continue
		}
		if !ix.opts.IgnoreModTime && !cand.ModTime.Equal(rec.ModTime) {
			continue
		}
		group := ix.store.Group(e)
		if differ[group] {
			continue
		}

		equal, err := ix.verify(h, e, &rec, &cand)
		if err != nil {
			return Unique, err
		}
		if equal {
			ix.store.Merge(e, h)
			ix.merges++
			matched = true
			logger.Debug("duplicate", "path", rec.Name(), "of", cand.Name())
			break
		}

		if differ == nil {
			differ = make(map[record.Handle]bool)
		}
		differ[group] = true
		if err := ix.collide(&cand, &rec); err != nil {
			return Unique, err
		}
	}

	if matched && ix.opts.Mode == Consolidate {
		ix.store.Drop(h)
		return Consolidated, nil
	}

	ix.byDigest[key] = append(ix.byDigest[key], h)
	if matched {
		return Duplicate, nil
	}
	return Unique, nil
}

// verify reports whether records h and e have the same content. Records
// already sharing a locator are linked without reading either file.
func (ix *Index) verify(h, e record.Handle, rec, cand *record.Record) (bool, error) {
	if ix.store.Locations(h).SharesAny(ix.store.Locations(e)) {
		return true, nil
	}

	ix.comparisons++
	equal, err := ix.comparer.Equal(cand.AbsPath, rec.AbsPath)
	if err != nil {
		return false, fmt.Errorf("verifying %s against %s: %w", rec.Name(), cand.Name(), err)
	}
	return equal, nil
}

func (ix *Index) collide(first, second *record.Record) error {
	c := types.Collision{
		Algorithm: ix.opts.key().MetalinkName(),
		Digest:    second.Digests.Hex(ix.opts.key()),
		First:     first.Name(),
		Second:    second.Name(),
	}
	ix.collisions = append(ix.collisions, c)

	switch ix.opts.Policy {
	case PolicyFail:
		return fmt.Errorf("%w: %s and %s share %s %s", ErrDigestCollision, c.First, c.Second, c.Algorithm, c.Digest)
	case PolicyWarn:
		logger.Warn("digest collision", "first", c.First, "second", c.Second, "algorithm", c.Algorithm, "digest", c.Digest)
	}
	return nil
}

// Collisions returns the collisions detected so far.
func (ix *Index) Collisions() []types.Collision {
	return ix.collisions
}

// Merges returns the number of confirmed duplicate merges.
func (ix *Index) Merges() int64 {
	return ix.merges
}

// Comparisons returns the number of byte comparisons performed.
func (ix *Index) Comparisons() int64 {
	return ix.comparisons
}
