// Package locator builds the retrieval locations of a file: mirror URLs
// under one or more base URLs, a local file URL, a Named Information URI
// (RFC 6920) and a magnet link.
package locator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

var (
	// ErrNoLocators is returned when no locator kind is enabled.
	ErrNoLocators = errors.New("at least one of base URL, file URL, ni URL or magnet URL is required")

	// ErrInvalidBaseURL is returned for a base URL without a scheme.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidCountry is returned for a country that is not two letters.
	ErrInvalidCountry = errors.New("country must be a two-letter ISO 3166-1 code")

	// ErrSHA256Required is returned when ni or magnet locators are enabled
	// without the sha256 digest.
	ErrSHA256Required = errors.New("ni and magnet URLs require the sha256 digest")
)

// Options selects the locator kinds to generate.
type Options struct {
	// BaseURLs are mirror roots. Each must contain "://".
	BaseURLs []string

	// Country is applied to base URL locations.
	Country string

	// FileURL adds a file:// URL for the local copy.
	FileURL bool

	// NI adds an ni:///sha-256;... URI.
	NI bool

	// Magnet adds a magnet:?xt=urn:sha256:... link.
	Magnet bool
}

// Enabled reports whether any locator kind is selected.
func (o Options) Enabled() bool {
	return len(o.BaseURLs) > 0 || o.FileURL || o.NI || o.Magnet
}

type base struct {
	prefix string
	scheme string
}

// Builder turns relative paths and digests into locations.
type Builder struct {
	bases    []base
	fileBase string
	country  string
	ni       bool
	magnet   bool
}

// New validates opts. root is the traversal root used for file URLs and
// algs is the set of digests that will be available.
func New(root string, opts Options, algs hasher.Set) (*Builder, error) {
	if !opts.Enabled() {
		return nil, ErrNoLocators
	}

	b := &Builder{ni: opts.NI, magnet: opts.Magnet}

	if (opts.NI || opts.Magnet) && !algs.Has(hasher.SHA256) {
		return nil, ErrSHA256Required
	}

	for _, raw := range opts.BaseURLs {
		i := strings.Index(raw, "://")
		if i <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
		}
		prefix := raw
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		b.bases = append(b.bases, base{prefix: prefix, scheme: strings.ToLower(raw[:i])})
	}

	if opts.Country != "" {
		c := strings.ToLower(opts.Country)
		if len(c) != 2 || c[0] < 'a' || c[0] > 'z' || c[1] < 'a' || c[1] > 'z' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCountry, opts.Country)
		}
		b.country = c
	}

	if opts.FileURL {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		b.fileBase = FileURL(abs)
	}

	return b, nil
}

// Locations returns the locations of the file at rel with digests d, in a
// fixed kind order: ni, magnet, base URLs, file URL.
func (b *Builder) Locations(rel []string, d hasher.Digests) []types.Location {
	var out []types.Location

	if sum, ok := d[hasher.SHA256]; ok {
		if b.ni {
			out = append(out, types.Location{URL: NamedInformation(sum), Type: "ni"})
		}
		if b.magnet {
			out = append(out, types.Location{URL: "magnet:?xt=urn:sha256:" + d.Hex(hasher.SHA256), Type: "magnet"})
		}
	}

	path := EscapePath(rel)
	for _, bs := range b.bases {
		out = append(out, types.Location{URL: bs.prefix + path, Type: bs.scheme, Country: b.country})
	}
	if b.fileBase != "" {
		out = append(out, types.Location{URL: b.fileBase + path, Type: "file"})
	}
	return out
}

// EscapePath percent-encodes each segment and joins them with "/".
func EscapePath(segments []string) string {
	esc := make([]string, len(segments))
	for i, s := range segments {
		esc[i] = url.PathEscape(s)
	}
	return strings.Join(esc, "/")
}

// NamedInformation returns the RFC 6920 ni URI for a sha-256 digest.
func NamedInformation(sha256 []byte) string {
	return "ni:///sha-256;" + base64.RawURLEncoding.EncodeToString(sha256)
}

// FileURL converts an absolute path into a file URL prefix ending in "/".
// Windows drive letters are lower-cased ("file:///c:/...") and UNC paths
// keep their host ("file://server/share/...").
func FileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if strings.HasPrefix(p, `\\`) || (len(p) >= 2 && p[1] == ':') {
		p = strings.ReplaceAll(p, `\`, "/")
	}

	var host string
	switch {
	case strings.HasPrefix(p, "//"):
		rest := p[2:]
		host, p, _ = strings.Cut(rest, "/")
		p = "/" + p
	case len(p) >= 2 && p[1] == ':':
		p = "/" + strings.ToLower(p[:1]) + p[1:]
	}

	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	var escaped []string
	for i, s := range segs {
		if s == "" {
			continue
		}
		if i == 0 && len(s) == 2 && s[1] == ':' {
			escaped = append(escaped, s)
			continue
		}
		escaped = append(escaped, url.PathEscape(s))
	}

	u := "file://" + host + "/" + strings.Join(escaped, "/")
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
