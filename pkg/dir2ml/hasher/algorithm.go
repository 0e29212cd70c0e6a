package hasher

import (
	"crypto/md5"  //nolint:gosec // md5 is a published manifest checksum, not a security boundary
	"crypto/sha1" //nolint:gosec // same as md5
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"slices"
	"strings"
)

// Algorithm identifies a supported digest algorithm.
type Algorithm int

// Supported algorithms, in canonical output order.
const (
	MD5 Algorithm = iota + 1
	SHA1
	SHA256
)

// ErrUnknownAlgorithm is returned when an algorithm name is not recognised.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// ErrNoAlgorithms is returned when an empty algorithm set is requested.
var ErrNoAlgorithms = errors.New("no hash algorithms requested")

// String returns the short algorithm name used on the command line.
func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// MetalinkName returns the IANA hash function textual name used in
// metalink documents.
func (a Algorithm) MetalinkName() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha-1"
	case SHA256:
		return "sha-256"
	default:
		return "unknown"
	}
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	default:
		return 0
	}
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case MD5:
		return md5.New() //nolint:gosec
	case SHA1:
		return sha1.New() //nolint:gosec
	default:
		return sha256.New()
	}
}

// ParseAlgorithm parses a single algorithm name. Both the short form
// ("sha256") and the metalink form ("sha-256") are accepted.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md5":
		return MD5, nil
	case "sha1", "sha-1":
		return SHA1, nil
	case "sha256", "sha-256":
		return SHA256, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Set is an ordered, duplicate-free collection of algorithms.
type Set []Algorithm

// NewSet returns a Set holding algs in canonical order.
func NewSet(algs ...Algorithm) Set {
	s := slices.Clone(algs)
	slices.Sort(s)
	return slices.Compact(s)
}

// ParseAlgorithms parses algorithm names into a Set. Each name may itself
// be a comma-separated list, so both repeated flags and "md5,sha256" work.
func ParseAlgorithms(names []string) (Set, error) {
	var algs []Algorithm
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			a, err := ParseAlgorithm(part)
			if err != nil {
				return nil, err
			}
			algs = append(algs, a)
		}
	}
	if len(algs) == 0 {
		return nil, ErrNoAlgorithms
	}
	return NewSet(algs...), nil
}

// Has reports whether the set contains a.
func (s Set) Has(a Algorithm) bool {
	return slices.Contains(s, a)
}

// Strings returns the short names of the algorithms in the set.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, a := range s {
		out[i] = a.String()
	}
	return out
}

// Digests maps each computed algorithm to its finalized digest.
type Digests map[Algorithm][]byte

// Hex returns the lowercase hex digest for a, or "" if it was not computed.
func (d Digests) Hex(a Algorithm) string {
	sum, ok := d[a]
	if !ok {
		return ""
	}
	return hex.EncodeToString(sum)
}

// Key returns the digest for a as a string suitable for map keys.
func (d Digests) Key(a Algorithm) (string, bool) {
	sum, ok := d[a]
	return string(sum), ok
}
