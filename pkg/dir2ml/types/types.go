// Package types provides core data types shared by the dir2ml packages.
// It includes location descriptors, file record snapshots, run statistics,
// progress snapshots and error kinds, along with helpers for parsing and
// formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Location describes one place a file's content can be retrieved from.
// Locations are unique by URL within a record.
type Location struct {
	// URL is the locator string (an http URL, file URL, ni URI or magnet link).
	URL string `json:"url" yaml:"url"`

	// Type is the locator type, normally the URL scheme.
	Type string `json:"type" yaml:"type"`

	// Country is an optional ISO 3166-1 alpha-2 code for mirror locations.
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
}

// ContentAddressed reports whether the locator is derived from the file's
// digest (ni and magnet) rather than from where the file lives. Files with
// equal digests share such locators whatever their bytes.
func (l Location) ContentAddressed() bool {
	return l.Type == "ni" || l.Type == "magnet"
}

// Hash is a single finalized digest of a file.
type Hash struct {
	// Type is the metalink hash type name (md5, sha-1, sha-256).
	Type string `json:"type" yaml:"type"`

	// Hex is the lowercase hexadecimal digest value.
	Hex string `json:"hex" yaml:"hex"`
}

// FileRecord is a read-only snapshot of a surviving record, handed to the
// output formatters once the run is complete.
type FileRecord struct {
	// Name is the slash-separated path relative to the traversal root.
	Name string `json:"name" yaml:"name"`

	// Path holds the individual relative path segments.
	Path []string `json:"-" yaml:"-"`

	// Size is the file size in bytes, taken from filesystem metadata.
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the last modification time of the file.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`

	// Hashes lists the computed digests in canonical algorithm order.
	Hashes []Hash `json:"hashes" yaml:"hashes"`

	// Locations is the (possibly merged) location set of the record.
	Locations []Location `json:"locations" yaml:"locations"`

	// Group identifies the duplicate group the record belongs to.
	// Records in FindDuplicates mode that share a group share locations.
	Group int `json:"group" yaml:"group"`
}

// HumanSize returns the file size formatted as a human-readable string.
func (f *FileRecord) HumanSize() string {
	return FormatSize(f.Size)
}

// Stats summarizes one run.
type Stats struct {
	// DirsVisited is the number of directories traversed.
	DirsVisited int64 `json:"dirs_visited" yaml:"dirs_visited"`

	// FilesSeen is the number of regular files discovered and hashed.
	FilesSeen int64 `json:"files_seen" yaml:"files_seen"`

	// BytesSeen is the sum of sizes of all hashed files.
	BytesSeen int64 `json:"bytes_seen" yaml:"bytes_seen"`

	// BytesHashed is the number of bytes read by the hash engine.
	BytesHashed int64 `json:"bytes_hashed" yaml:"bytes_hashed"`

	// Survivors is the number of records handed to the emitter.
	Survivors int64 `json:"survivors" yaml:"survivors"`

	// Merges is the number of confirmed duplicate merges.
	Merges int64 `json:"merges" yaml:"merges"`

	// Comparisons is the number of byte-for-byte comparisons performed.
	Comparisons int64 `json:"comparisons" yaml:"comparisons"`

	// Collisions is the number of digest collisions detected.
	Collisions int64 `json:"collisions" yaml:"collisions"`

	// Skipped is the number of unreadable entries passed over.
	Skipped int64 `json:"skipped" yaml:"skipped"`

	// Filtered is the number of files left out by the minimum size.
	Filtered int64 `json:"filtered" yaml:"filtered"`

	// Elapsed is the wall time of the run.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Mbps returns the hashing throughput in megabits per second.
func (s Stats) Mbps() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.BytesHashed) / 1e6 * 8 / secs
}

// ScanError represents a non-fatal error encountered during a run.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path" yaml:"path"`

	// Op is the operation that failed (readdir, stat, hash).
	Op string `json:"op" yaml:"op"`

	// Error is the error message describing what went wrong.
	Error string `json:"error" yaml:"error"`
}

// Collision describes two files sharing a digest but not content.
type Collision struct {
	// Algorithm is the digest algorithm the files collided under.
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// Digest is the shared digest in hex.
	Digest string `json:"digest" yaml:"digest"`

	// First is the path of the earlier record.
	First string `json:"first" yaml:"first"`

	// Second is the path of the later record.
	Second string `json:"second" yaml:"second"`
}

// ScanProgress reports real-time run progress.
type ScanProgress struct {
	// DirsVisited is the number of directories processed so far.
	DirsVisited int64 `json:"dirs_visited"`

	// FilesHashed is the number of files hashed so far.
	FilesHashed int64 `json:"files_hashed"`

	// BytesHashed is the number of bytes read so far.
	BytesHashed int64 `json:"bytes_hashed"`

	// TotalFiles is the estimated number of files, zero when unknown.
	TotalFiles int64 `json:"total_files,omitempty"`

	// TotalBytes is the estimated number of bytes, zero when unknown.
	TotalBytes int64 `json:"total_bytes,omitempty"`

	// Merges is the number of duplicates merged so far.
	Merges int64 `json:"merges"`

	// Collisions is the number of collisions detected so far.
	Collisions int64 `json:"collisions"`

	// CurrentPath is the file currently being processed.
	CurrentPath string `json:"current_path"`

	// Done is set on the final progress report.
	Done bool `json:"done,omitempty"`
}

// Error kinds reported with path context through PathError.
var (
	// ErrDirectoryUnreadable indicates a directory could not be opened or listed.
	ErrDirectoryUnreadable = errors.New("directory unreadable")

	// ErrFileUnreadable indicates a file's metadata or bytes could not be read.
	ErrFileUnreadable = errors.New("file unreadable")
)

// PathError records an error kind together with the path and operation
// that caused it.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap returns both the kind and the underlying cause, so errors.Is
// matches either.
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DirectoryError wraps err as an ErrDirectoryUnreadable for path.
func DirectoryError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Kind: ErrDirectoryUnreadable, Err: err}
}

// FileError wraps err as an ErrFileUnreadable for path.
func FileError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Kind: ErrFileUnreadable, Err: err}
}

// NewScanError converts err into a ScanError, pulling the path and
// operation out of a PathError when present.
func NewScanError(path string, err error) ScanError {
	se := ScanError{Path: path, Error: err.Error()}
	var pe *PathError
	if errors.As(err, &pe) {
		se.Op = pe.Op
		if pe.Path != "" {
			se.Path = pe.Path
		}
	}
	return se
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string such as "512", "100K",
// "50MB" or "1.5GiB" and returns the size in bytes. All units are binary.
// Decimal values are truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	unit := strings.ToUpper(matches[2])
	unit = strings.TrimSuffix(unit, "IB")
	unit = strings.TrimSuffix(unit, "B")

	var multiplier int64
	switch unit {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, unit)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
