package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/manifest"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Regenerate the document whenever the tree changes",
	Long: `Generate the document once, then watch the tree and regenerate it
after changes settle for the debounce interval (watch.debounce, default 2s).

All generation flags apply. Use -o to keep the document in a file; it is
replaced atomically on each run and changes to it are ignored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// runWatch is the watch command handler.
func runWatch(cmd *cobra.Command, args []string) error {
	j, err := prepareJob(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if _, err := j.run(ctx, manifest.OpGenerate, stdout, stderr); err != nil {
		return err
	}

	w, err := watch.New(watch.Options{
		Debounce: j.cfg.Watch.Debounce,
		Ignore:   outputMatcher(j.cfg.Output),
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(j.opts.Root); err != nil {
		return err
	}
	printInfo("Watching %s (%d directories)", j.opts.Root, w.Watched())

	err = w.Run(ctx, func(ctx context.Context) error {
		res, err := j.run(ctx, manifest.OpWatch, stdout, stderr)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// Keep watching; the next change may fix it
			cliLogger.Error("regeneration failed", "error", err)
			return nil
		}
		cliLogger.Info("regenerated", "files", len(res.Files), "merges", res.Stats.Merges)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// outputMatcher returns a predicate matching the output document and the
// temp files it is written through.
func outputMatcher(out string) func(string) bool {
	if out == "" || out == manifest.StdoutPath {
		return nil
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return nil
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)
	return func(path string) bool {
		if path == abs {
			return true
		}
		return filepath.Dir(path) == dir && strings.HasPrefix(filepath.Base(path), "."+base+".")
	}
}
