// Package output renders the surviving records of a run as a document.
// The default metalink formatter produces an RFC 5854 Metalink 4 document;
// json, yaml, plain, paths, null, template and pretty cover scripting and
// terminal use.
//
// The package uses a registry so formatters can be selected by name:
//
//	formatter, err := output.Get("metalink")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

var logger = logging.Get("output")

// DefaultFormat is the formatter used when none is chosen.
const DefaultFormat = "metalink"

// Result contains everything a formatter may render.
type Result struct {
	// Files are the surviving records in traversal order.
	Files []types.FileRecord `json:"files" yaml:"files"`

	Stats types.Stats `json:"stats" yaml:"stats"`

	// Source is the absolute traversal root.
	Source string `json:"source" yaml:"source"`

	// Generator names the producing program. Empty omits it.
	Generator string `json:"generator,omitempty" yaml:"generator,omitempty"`

	// Updated is the document timestamp. Zero omits it.
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`

	// RunID identifies the run that produced the result.
	RunID string `json:"run_id" yaml:"run_id"`

	// Collisions lists detected digest collisions.
	Collisions []types.Collision `json:"collisions,omitempty" yaml:"collisions,omitempty"`

	// Warnings contains skipped entries and other non-fatal messages.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TotalSize returns the sum of all file sizes in the result.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered formatter names in sorted order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
