package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/dedup"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/locator"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/manifest"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/record"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/walker"
)

var logger = logging.Get("scanner")

// progressInterval throttles OnProgress calls.
const progressInterval = 50 * time.Millisecond

// Result is the outcome of one run.
type Result struct {
	// Root is the absolute traversal root.
	Root string `json:"root" yaml:"root"`

	// RunID uniquely identifies the run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Started is when the run began.
	Started time.Time `json:"started" yaml:"started"`

	// Files are the surviving records in traversal order.
	Files []types.FileRecord `json:"files" yaml:"files"`

	Stats types.Stats `json:"stats" yaml:"stats"`

	// Errors lists entries that were skipped and reported.
	Errors []types.ScanError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Collisions lists every digest collision detected.
	Collisions []types.Collision `json:"collisions,omitempty" yaml:"collisions,omitempty"`
}

// Scanner performs a single sequential run. Traversal, hashing and
// duplicate verification happen one file at a time.
type Scanner struct {
	opts    Options
	walker  *walker.Walker
	hasher  Hasher
	engine  *hasher.Engine
	locator *locator.Builder

	store *record.Store
	index *dedup.Index

	stats  types.Stats
	errors []types.ScanError

	progress     types.ScanProgress
	lastProgress time.Time
}

// New validates opts and prepares a Scanner.
func New(opts Options) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &Scanner{opts: opts}

	w, err := walker.New(opts.Root, walker.Options{
		Recursive: opts.Recursive,
		MaxDepth:  opts.MaxDepth,
		Exclude:   opts.Exclude,
		OnError:   s.handleWalkError,
	})
	if err != nil {
		return nil, err
	}
	s.walker = w

	s.locator, err = locator.New(w.Root(), opts.Locators, opts.Algorithms)
	if err != nil {
		return nil, err
	}

	if opts.Hasher != nil {
		s.hasher = opts.Hasher
	} else {
		s.engine, err = hasher.New(opts.Algorithms)
		if err != nil {
			return nil, err
		}
		s.engine.OnChunk = s.onChunk
		s.hasher = s.engine
	}

	return s, nil
}

// Root returns the absolute traversal root.
func (s *Scanner) Root() string {
	return s.walker.Root()
}

// Scan performs the run. A Scanner may be reused; each call starts from
// an empty store and index.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	started := time.Now()
	s.store = record.NewStore()
	s.index = dedup.New(s.store, s.opts.dedupOptions())
	s.stats = types.Stats{}
	s.errors = nil
	s.progress = types.ScanProgress{}

	log := logger.With("root", s.Root())
	log.Info("run started", "dedup", s.opts.Dedup, "algorithms", s.opts.Algorithms.Strings())

	if s.opts.Estimate {
		totals, err := s.walker.Estimate(ctx)
		if err != nil {
			return nil, fmt.Errorf("estimating %s: %w", s.Root(), err)
		}
		s.progress.TotalFiles = totals.Files
		s.progress.TotalBytes = totals.Bytes
		log.Debug("estimate", "files", totals.Files, "bytes", totals.Bytes)
	}
	s.reportProgressForce()

	if err := s.walker.Walk(ctx, s.visit); err != nil {
		return nil, err
	}

	res := &Result{
		Root:       s.Root(),
		RunID:      manifest.NewRunID(),
		Started:    started,
		Errors:     s.errors,
		Collisions: s.index.Collisions(),
	}
	for _, h := range s.store.Survivors() {
		res.Files = append(res.Files, s.snapshot(h))
	}

	s.stats.Survivors = int64(len(res.Files))
	s.stats.Merges = s.index.Merges()
	s.stats.Comparisons = s.index.Comparisons()
	s.stats.Collisions = int64(len(res.Collisions))
	s.stats.Elapsed = time.Since(started)
	res.Stats = s.stats

	s.progress.Done = true
	s.progress.CurrentPath = ""
	s.reportProgressForce()

	log.Info("run finished",
		"files", s.stats.FilesSeen,
		"survivors", s.stats.Survivors,
		"merges", s.stats.Merges,
		"collisions", s.stats.Collisions,
		"elapsed", s.stats.Elapsed)
	return res, nil
}

func (s *Scanner) visit(e walker.Entry) error {
	if e.Kind == walker.KindDir {
		s.stats.DirsVisited++
		s.progress.DirsVisited++
		return nil
	}

	size := e.Info.Size()
	if size < s.opts.MinSize {
		s.stats.Filtered++
		return nil
	}

	s.progress.CurrentPath = e.Name()
	s.reportProgress()

	digests, n, err := s.hasher.HashFile(e.AbsPath)
	if err != nil {
		return s.handleFileError(e.AbsPath, err)
	}
	if n != size {
		logger.Warn("file size changed while hashing", "path", e.Name(), "stat", size, "read", n)
	}
	if s.engine == nil {
		s.progress.BytesHashed += n
	}

	s.stats.FilesSeen++
	s.stats.BytesSeen += size
	s.stats.BytesHashed += n
	s.progress.FilesHashed++

	rec := record.Record{
		RelPath: e.RelPath,
		AbsPath: e.AbsPath,
		Size:    size,
		ModTime: e.Info.ModTime(),
		Digests: digests,
	}
	h := s.store.Add(rec, s.locator.Locations(e.RelPath, digests))

	out, err := s.index.Offer(h)
	if err != nil {
		return err
	}
	if out != dedup.Unique {
		s.progress.Merges++
		logger.Debug("merged duplicate", "path", e.Name(), "outcome", out)
	}
	s.progress.Collisions = int64(len(s.index.Collisions()))
	return nil
}

// handleWalkError applies the skip-and-report policy to traversal errors.
func (s *Scanner) handleWalkError(path string, err error) error {
	if s.opts.Strict {
		return err
	}
	s.addError(path, err)
	return nil
}

// handleFileError applies the skip-and-report policy to hashing errors.
func (s *Scanner) handleFileError(path string, err error) error {
	if s.opts.Strict || !errors.Is(err, types.ErrFileUnreadable) {
		return err
	}
	s.addError(path, err)
	return nil
}

func (s *Scanner) addError(path string, err error) {
	s.stats.Skipped++
	s.errors = append(s.errors, types.NewScanError(path, err))
	logger.Warn("skipped", "path", path, "error", err)
}

func (s *Scanner) snapshot(h record.Handle) types.FileRecord {
	rec := s.store.Get(h)
	fr := types.FileRecord{
		Name:      rec.Name(),
		Path:      rec.RelPath,
		Size:      rec.Size,
		ModTime:   rec.ModTime,
		Locations: s.store.Locations(h).All(),
		Group:     int(s.store.Group(h)),
	}
	for _, a := range s.opts.Algorithms {
		if _, ok := rec.Digests[a]; ok {
			fr.Hashes = append(fr.Hashes, types.Hash{Type: a.MetalinkName(), Hex: rec.Digests.Hex(a)})
		}
	}
	return fr
}

func (s *Scanner) onChunk(n int) {
	s.progress.BytesHashed += int64(n)
	s.reportProgress()
}

// reportProgress calls OnProgress at most once per progressInterval.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}
	now := time.Now()
	if now.Sub(s.lastProgress) < progressInterval {
		return
	}
	s.lastProgress = now
	s.opts.OnProgress(s.progress)
}

// reportProgressForce bypasses the throttle for start and end reports.
func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress = time.Now()
	s.opts.OnProgress(s.progress)
}
