package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoDir         = errors.New("history directory cannot be empty")
	ErrEntryNotFound = errors.New("history entry not found")
	ErrAmbiguousID   = errors.New("ambiguous history entry ID")
)

// Manifest is the run history: one JSON file per run in a directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New returns a Manifest rooted at dir. The directory is created by
// EnsureDir, not here.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	return &Manifest{dir: dir}, nil
}

func (m *Manifest) Dir() string {
	return m.dir
}

func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Log persists entry, filling in a missing ID, timestamp or operation.
func (m *Manifest) Log(entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = NewRunID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Operation == "" {
		entry.Operation = OpGenerate
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	// The timestamp prefix keeps a plain directory listing in run order.
	name := entry.Timestamp.UTC().Format("2006-01-02T15-04-05") + "-" + entry.ID + ".json"
	if err := writeAtomic(filepath.Join(m.dir, name), data); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

// List returns entries newest first, at most limit of them when limit > 0.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry whose ID is id or, failing that, the only entry
// whose ID starts with id.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty ID", ErrEntryNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	var matches []int
	for i, e := range entries {
		if e.ID == id {
			return &entries[i], nil
		}
		if strings.HasPrefix(e.ID, id) {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	case 1:
		return &entries[matches[0]], nil
	default:
		return nil, fmt.Errorf("%w: %s matches %d runs", ErrAmbiguousID, id, len(matches))
	}
}

// Cleanup removes entry files last written more than retentionDays ago and
// reports how many it removed. retentionDays <= 0 keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := m.files()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, f := range files {
		info, err := f.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, f.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// files lists the entry files. A missing directory has none.
func (m *Manifest) files() ([]fs.DirEntry, error) {
	all, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}
	return slices.DeleteFunc(all, func(f fs.DirEntry) bool {
		return f.IsDir() || filepath.Ext(f.Name()) != ".json"
	}), nil
}

// readAll decodes every entry file, skipping unreadable ones.
func (m *Manifest) readAll() ([]Entry, error) {
	files, err := m.files()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(m.dir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if json.Unmarshal(data, &e) != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
