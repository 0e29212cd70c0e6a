package record

import (
	"slices"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// LocationSet is an insertion-ordered set of locations, unique by URL.
// The zero value is ready to use.
type LocationSet struct {
	items []types.Location
	index map[string]int
}

// NewLocationSet returns a set holding locs, dropping repeated URLs.
func NewLocationSet(locs ...types.Location) *LocationSet {
	s := &LocationSet{}
	for _, l := range locs {
		s.Add(l)
	}
	return s
}

// Add inserts l unless a location with the same URL is present.
// It reports whether the set changed.
func (s *LocationSet) Add(l types.Location) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[l.URL]; ok {
		return false
	}
	s.index[l.URL] = len(s.items)
	s.items = append(s.items, l)
	return true
}

// Contains reports whether url is in the set.
func (s *LocationSet) Contains(url string) bool {
	_, ok := s.index[url]
	return ok
}

// SharesAny reports whether s and other have a placement locator in
// common. Content-addressed locators are ignored: they only repeat the
// digest and say nothing about whether two files are the same file.
func (s *LocationSet) SharesAny(other *LocationSet) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for _, l := range small.items {
		if !l.ContentAddressed() && large.Contains(l.URL) {
			return true
		}
	}
	return false
}

// Union adds every location of other to s, keeping s's order first.
func (s *LocationSet) Union(other *LocationSet) {
	if s == other {
		return
	}
	for _, l := range other.items {
		s.Add(l)
	}
}

// All returns a copy of the locations in insertion order.
func (s *LocationSet) All() []types.Location {
	return slices.Clone(s.items)
}

// Len returns the number of locations.
func (s *LocationSet) Len() int {
	return len(s.items)
}
