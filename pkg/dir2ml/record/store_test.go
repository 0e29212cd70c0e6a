package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

func loc(url string) types.Location {
	return types.Location{URL: url, Type: "http"}
}

func TestLocationSetUniqueByURL(t *testing.T) {
	s := NewLocationSet(loc("http://a/x"), loc("http://a/x"), loc("http://b/x"))
	assert.Equal(t, 2, s.Len())

	assert.False(t, s.Add(types.Location{URL: "http://b/x", Type: "other"}))
	assert.True(t, s.Add(loc("http://c/x")))
	assert.Equal(t, []string{"http://a/x", "http://b/x", "http://c/x"}, urls(s))
}

func TestLocationSetSharesAny(t *testing.T) {
	a := NewLocationSet(loc("1"), loc("2"))
	b := NewLocationSet(loc("3"), loc("2"))
	c := NewLocationSet(loc("4"))

	assert.True(t, a.SharesAny(b))
	assert.False(t, a.SharesAny(c))
	assert.True(t, a.SharesAny(a))
	assert.False(t, (&LocationSet{}).SharesAny(&LocationSet{}))

	ni := types.Location{URL: "ni:///sha-256;AAAA", Type: "ni"}
	magnet := types.Location{URL: "magnet:?xt=urn:sha256:00", Type: "magnet"}
	d := NewLocationSet(ni, magnet, loc("5"))
	e := NewLocationSet(ni, magnet, loc("6"))
	assert.False(t, d.SharesAny(e), "digest-derived locators do not link files")
	e.Add(loc("5"))
	assert.True(t, d.SharesAny(e))
}

func TestLocationSetUnion(t *testing.T) {
	a := NewLocationSet(loc("1"), loc("2"))
	b := NewLocationSet(loc("2"), loc("3"))
	a.Union(b)
	assert.Equal(t, []string{"1", "2", "3"}, urls(a))

	a.Union(a)
	assert.Equal(t, 3, a.Len())
}

func TestStoreMergeSharesSet(t *testing.T) {
	s := NewStore()
	first := s.Add(Record{RelPath: []string{"a", "x.bin"}}, []types.Location{loc("u/a/x.bin")})
	second := s.Add(Record{RelPath: []string{"b", "x.bin"}}, []types.Location{loc("u/b/x.bin")})
	other := s.Add(Record{RelPath: []string{"c"}}, []types.Location{loc("u/c")})

	require.False(t, s.SameGroup(first, second))

	root := s.Merge(second, first)
	assert.Equal(t, first, root)
	assert.True(t, s.SameGroup(first, second))
	assert.Same(t, s.Locations(first), s.Locations(second))
	assert.Equal(t, []string{"u/a/x.bin", "u/b/x.bin"}, urls(s.Locations(first)))
	assert.Equal(t, []string{"u/c"}, urls(s.Locations(other)))

	assert.Equal(t, root, s.Merge(first, second))
}

func TestStoreTransitiveMerge(t *testing.T) {
	s := NewStore()
	h := make([]Handle, 4)
	for i := range h {
		h[i] = s.Add(Record{}, []types.Location{loc(string(rune('a' + i)))})
	}

	s.Merge(h[2], h[3])
	s.Merge(h[1], h[3])
	s.Merge(h[0], h[2])

	for _, x := range h {
		assert.Equal(t, h[0], s.Group(x))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, urls(s.Locations(h[3])))
}

func TestStoreSurvivors(t *testing.T) {
	s := NewStore()
	a := s.Add(Record{Size: 1}, nil)
	b := s.Add(Record{Size: 2}, nil)
	c := s.Add(Record{Size: 3}, nil)

	s.Drop(b)
	assert.True(t, s.Dropped(b))
	assert.Equal(t, []Handle{a, c}, s.Survivors())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, int64(3), s.Get(c).Size)
}

func TestRecordName(t *testing.T) {
	r := Record{RelPath: []string{"dir", "sub", "file.txt"}}
	assert.Equal(t, "dir/sub/file.txt", r.Name())
}

func urls(s *LocationSet) []string {
	var out []string
	for _, l := range s.All() {
		out = append(out, l.URL)
	}
	return out
}
