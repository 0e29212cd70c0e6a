// Package manifest records dir2ml runs and writes generated documents to
// disk.
package manifest

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpGenerate represents a one-shot document generation.
	OpGenerate OperationType = "generate"
	// OpWatch represents a regeneration triggered by the watcher.
	OpWatch OperationType = "watch"
)

// Entry represents a single run in the history.
type Entry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Operation  OperationType `json:"operation"`
	Root       string        `json:"root"`
	Output     string        `json:"output,omitempty"`
	Format     string        `json:"format"`
	Algorithms []string      `json:"algorithms"`
	Dedup      string        `json:"dedup"`
	Summary    Summary       `json:"summary"`
}

// Summary contains the run counters.
type Summary struct {
	Files      int64         `json:"files"`
	Survivors  int64         `json:"survivors"`
	Bytes      int64         `json:"bytes"`
	Merges     int64         `json:"merges"`
	Collisions int64         `json:"collisions"`
	Skipped    int64         `json:"skipped"`
	Filtered   int64         `json:"filtered"`
	Elapsed    time.Duration `json:"elapsed"`
}
