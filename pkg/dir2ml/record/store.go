// Package record holds the per-file records of a run.
//
// Records live in an append-only arena and are addressed by Handle, so
// handles held by the duplicate index never dangle. Duplicate groups are
// tracked with union-find; each group owns exactly one LocationSet, which
// every member of the group observes.
package record

import (
	"strings"
	"time"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// Handle is a stable reference to a record in a Store.
type Handle int

// Record is the metadata of one discovered file.
type Record struct {
	// RelPath holds the path segments relative to the traversal root.
	RelPath []string

	// AbsPath is used only to re-read content during verification.
	AbsPath string

	// Size comes from filesystem metadata, not from bytes read.
	Size int64

	ModTime time.Time

	// Digests is populated once, before the record enters the store.
	Digests hasher.Digests
}

// Name returns the slash-separated relative path.
func (r *Record) Name() string {
	return strings.Join(r.RelPath, "/")
}

// Store is an arena of records. It is not safe for concurrent use.
type Store struct {
	records []Record
	parent  []Handle
	dropped []bool
	sets    map[Handle]*LocationSet
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sets: make(map[Handle]*LocationSet)}
}

// Add appends rec as a new single-member group owning locs.
func (s *Store) Add(rec Record, locs []types.Location) Handle {
	h := Handle(len(s.records))
	s.records = append(s.records, rec)
	s.parent = append(s.parent, h)
	s.dropped = append(s.dropped, false)
	s.sets[h] = NewLocationSet(locs...)
	return h
}

// Len returns the number of records ever added, dropped ones included.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns a copy of the record for h.
func (s *Store) Get(h Handle) Record {
	return s.records[h]
}

// Group returns the representative of h's duplicate group, which is the
// earliest-added member.
func (s *Store) Group(h Handle) Handle {
	root := h
	for s.parent[root] != root {
		root = s.parent[root]
	}
	for s.parent[h] != root {
		next := s.parent[h]
		s.parent[h] = root
		h = next
	}
	return root
}

// SameGroup reports whether a and b are in the same duplicate group.
func (s *Store) SameGroup(a, b Handle) bool {
	return s.Group(a) == s.Group(b)
}

// Locations returns the location set shared by h's group.
func (s *Store) Locations(h Handle) *LocationSet {
	return s.sets[s.Group(h)]
}

// Merge joins the groups of a and b. The earlier group becomes the
// representative and absorbs the other group's locations, so both records
// afterwards observe the same set. It returns the representative.
func (s *Store) Merge(a, b Handle) Handle {
	ra, rb := s.Group(a), s.Group(b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	s.sets[ra].Union(s.sets[rb])
	delete(s.sets, rb)
	s.parent[rb] = ra
	return ra
}

// Drop removes h from the survivors. Its locations stay with its group.
func (s *Store) Drop(h Handle) {
	s.dropped[h] = true
}

// Dropped reports whether h was removed from the survivors.
func (s *Store) Dropped(h Handle) bool {
	return s.dropped[h]
}

// Survivors returns the handles not dropped, in insertion order.
func (s *Store) Survivors() []Handle {
	out := make([]Handle, 0, len(s.records))
	for i, d := range s.dropped {
		if !d {
			out = append(out, Handle(i))
		}
	}
	return out
}
