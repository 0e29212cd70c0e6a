package dedup

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how confirmed duplicates are handled.
type Mode int

const (
	// Off keeps every record independently. No index is built.
	Off Mode = iota
	// FindDuplicates keeps every record but duplicates share one location set.
	FindDuplicates
	// Consolidate keeps the first record of each duplicate group only.
	Consolidate
)

// ErrInvalidMode is returned for an unrecognised mode name.
var ErrInvalidMode = errors.New("invalid dedup mode")

func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case FindDuplicates:
		return "find"
	case Consolidate:
		return "consolidate"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return Off, nil
	case "find", "find-duplicates", "keep":
		return FindDuplicates, nil
	case "consolidate", "merge":
		return Consolidate, nil
	default:
		return Off, fmt.Errorf("%w: %q (want off, find or consolidate)", ErrInvalidMode, s)
	}
}

// CollisionPolicy selects what happens when two files share a digest but
// not their content. Collisions are counted under every policy.
type CollisionPolicy int

const (
	// PolicyWarn logs each collision and continues.
	PolicyWarn CollisionPolicy = iota
	// PolicyIgnore continues silently.
	PolicyIgnore
	// PolicyFail aborts the run with ErrDigestCollision.
	PolicyFail
)

// ErrInvalidPolicy is returned for an unrecognised policy name.
var ErrInvalidPolicy = errors.New("invalid collision policy")

func (p CollisionPolicy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyIgnore:
		return "ignore"
	case PolicyFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseCollisionPolicy parses a policy name. Empty means warn.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return PolicyWarn, nil
	case "ignore":
		return PolicyIgnore, nil
	case "fail":
		return PolicyFail, nil
	default:
		return PolicyWarn, fmt.Errorf("%w: %q (want ignore, warn or fail)", ErrInvalidPolicy, s)
	}
}
