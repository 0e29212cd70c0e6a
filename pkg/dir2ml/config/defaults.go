// Package config provides configuration management for dir2ml.
package config

import "time"

// Default configuration values for dir2ml.
const (
	// DefaultFormat is the output formatter.
	DefaultFormat = "metalink"

	// DefaultDedup is the duplicate handling mode.
	DefaultDedup = "off"

	// DefaultCollisions is the digest collision policy.
	DefaultCollisions = "warn"

	// DefaultMinSize includes every regular file.
	DefaultMinSize = "0"

	// DefaultDebounce is how long watch waits for changes to settle.
	DefaultDebounce = 2 * time.Second

	// DefaultRetentionDays is the default number of days to retain run history.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3
)

// DefaultHashTypes are the digests computed when none are requested.
var DefaultHashTypes = []string{"sha256"}
