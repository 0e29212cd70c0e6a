package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dir2ml/cmd/dir2ml/tui"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/config"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/dedup"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/locator"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/manifest"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/output"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/scanner"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

var cliLogger = logging.Get("cli")

// errDirectoryRequired is returned when neither -d nor an argument names
// the tree to describe.
var errDirectoryRequired = errors.New("a directory is required (-d or argument)")

// job is one fully configured generation.
type job struct {
	cfg       *config.Config
	opts      scanner.Options
	formatter output.Formatter
	format    string
}

// runGenerate is the root command handler.
func runGenerate(cmd *cobra.Command, args []string) error {
	j, err := prepareJob(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = j.run(ctx, manifest.OpGenerate, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// prepareJob loads configuration, initializes logging and validates every
// option before any file is read.
func prepareJob(args []string) (*job, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Directory = args[0]
	}

	if err := initLogging(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	opts, err := buildScanOptions(cfg)
	if err != nil {
		return nil, err
	}

	formatter, err := buildFormatter(cfg)
	if err != nil {
		return nil, err
	}

	return &job{cfg: cfg, opts: opts, formatter: formatter, format: cfg.Format}, nil
}

// buildScanOptions converts the configuration into scanner options.
func buildScanOptions(cfg *config.Config) (scanner.Options, error) {
	opts := scanner.DefaultOptions()

	if cfg.Directory == "" {
		return opts, errDirectoryRequired
	}
	root, err := config.ExpandPath(cfg.Directory)
	if err != nil {
		return opts, err
	}
	opts.Root = root

	opts.Recursive = cfg.Recursive
	opts.MaxDepth = cfg.MaxDepth
	opts.Exclude = cfg.Exclude
	opts.Strict = cfg.Strict
	opts.IgnoreModTime = cfg.IgnoreMtime

	minSize, err := cfg.MinSizeBytes()
	if err != nil {
		return opts, fmt.Errorf("invalid min-size %q: %w", cfg.MinSize, err)
	}
	opts.MinSize = minSize

	algs, err := hasher.ParseAlgorithms(cfg.HashType)
	if err != nil {
		return opts, fmt.Errorf("invalid hash-type: %w", err)
	}
	opts.Algorithms = algs

	mode, err := dedup.ParseMode(cfg.Dedup)
	if err != nil {
		return opts, err
	}
	opts.Dedup = mode

	policy, err := dedup.ParseCollisionPolicy(cfg.Collisions)
	if err != nil {
		return opts, err
	}
	opts.Collisions = policy

	opts.Locators = locator.Options{
		BaseURLs: cfg.BaseURL,
		Country:  cfg.Country,
		FileURL:  cfg.FileURL,
		NI:       cfg.NIURL,
		Magnet:   cfg.MagnetURL,
	}
	if !opts.Locators.Enabled() {
		return opts, locator.ErrNoLocators
	}

	opts.Estimate = cfg.Estimate
	return opts, nil
}

// buildFormatter resolves the output format.
func buildFormatter(cfg *config.Config) (output.Formatter, error) {
	name := cfg.Format
	if name == "" {
		name = output.DefaultFormat
	}

	if name == "template" && cfg.Template != "" {
		return output.NewTemplateFormatter(cfg.Template)
	}

	formatter, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return formatter, nil
}

// run scans, renders and writes one document. It returns the scan result
// so callers can report on it.
func (j *job) run(ctx context.Context, op manifest.OperationType, stdout, stderr io.Writer) (*scanner.Result, error) {
	res, err := j.scan(ctx, stderr)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printInfo("Interrupted, no document written")
		}
		return nil, err
	}

	var buf bytes.Buffer
	if err := j.formatter.Format(&buf, j.outputResult(res)); err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	if err := manifest.WriteDocument(j.cfg.Output, buf.Bytes(), stdout); err != nil {
		return nil, err
	}

	if j.cfg.ShowStatistics {
		fmt.Fprintln(stderr, output.RenderStats(res.Stats))
	}
	for _, e := range res.Errors {
		cliLogger.Warn("skipped", "path", e.Path, "op", e.Op, "error", e.Error)
	}

	j.recordHistory(op, res)
	return res, nil
}

// scan runs the scanner, behind the progress view when it was requested
// and stderr is a terminal.
func (j *job) scan(ctx context.Context, stderr io.Writer) (*scanner.Result, error) {
	opts := j.opts
	interactive := j.cfg.Progress && isTTY(stderr)

	var report func(types.ScanProgress)
	if interactive {
		opts.OnProgress = func(p types.ScanProgress) {
			if report != nil {
				report(p)
			}
		}
	}

	s, err := scanner.New(opts)
	if err != nil {
		return nil, err
	}
	if !interactive {
		return s.Scan(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var res *scanner.Result
	err = tui.Run(tui.Options{Root: s.Root(), Version: version, Output: stderr, Cancel: cancel},
		func(r func(types.ScanProgress)) error {
			report = r
			var scanErr error
			res, scanErr = s.Scan(ctx)
			return scanErr
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// outputResult converts a scan result for the formatters.
func (j *job) outputResult(res *scanner.Result) *output.Result {
	out := &output.Result{
		Files:      res.Files,
		Stats:      res.Stats,
		Source:     res.Root,
		RunID:      res.RunID,
		Collisions: res.Collisions,
	}
	if !j.cfg.NoGenerator {
		out.Generator = generator()
	}
	if !j.cfg.NoDate {
		out.Updated = res.Started.UTC().Truncate(time.Second)
	}
	for _, e := range res.Errors {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s: %s", e.Path, e.Op, e.Error))
	}
	return out
}

// recordHistory appends the run to the history when enabled. Failures are
// logged, never returned: the document has already been written.
func (j *job) recordHistory(op manifest.OperationType, res *scanner.Result) {
	if !j.cfg.History.Enabled {
		return
	}

	m, err := manifest.New(j.cfg.HistoryPath())
	if err == nil {
		err = m.EnsureDir()
	}
	if err != nil {
		cliLogger.Warn("history unavailable", "error", err)
		return
	}

	outPath := j.cfg.Output
	if outPath != "" && outPath != manifest.StdoutPath {
		if abs, absErr := filepath.Abs(outPath); absErr == nil {
			outPath = abs
		}
	}

	entry := &manifest.Entry{
		ID:         res.RunID,
		Timestamp:  res.Started.UTC(),
		Operation:  op,
		Root:       res.Root,
		Output:     outPath,
		Format:     j.format,
		Algorithms: j.opts.Algorithms.Strings(),
		Dedup:      j.opts.Dedup.String(),
		Summary: manifest.Summary{
			Files:      res.Stats.FilesSeen,
			Survivors:  res.Stats.Survivors,
			Bytes:      res.Stats.BytesHashed,
			Merges:     res.Stats.Merges,
			Collisions: res.Stats.Collisions,
			Skipped:    res.Stats.Skipped,
			Filtered:   res.Stats.Filtered,
			Elapsed:    res.Stats.Elapsed,
		},
	}
	if err := m.Log(entry); err != nil {
		cliLogger.Warn("failed to record history", "error", err)
		return
	}
	if _, err := m.Cleanup(j.cfg.History.RetentionDays); err != nil {
		cliLogger.Warn("history cleanup failed", "error", err)
	}
}

// isTTY reports whether w is an interactive terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
