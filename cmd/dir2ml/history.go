package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/manifest"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View past dir2ml runs.

Runs are recorded when history.enabled is set in the configuration
(or DIR2ML_HISTORY_ENABLED=true).`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than history.retention_days.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns the history store for the loaded configuration.
func getManifest() (*manifest.Manifest, int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	m, err := manifest.New(cfg.HistoryPath())
	if err != nil {
		return nil, 0, err
	}
	return m, cfg.History.RetentionDays, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	m, _, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		return nil
	}

	fmt.Fprintf(out, "%-8s  %-19s  %-8s  %-9s  %-10s  %s\n", "ID", "TIME", "OP", "FILES", "SIZE", "ROOT")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, e := range entries {
		fmt.Fprintf(out, "%-8s  %-19s  %-8s  %-9s  %-10s  %s\n",
			shortID(e.ID),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Operation,
			humanize.Comma(e.Summary.Survivors),
			humanize.IBytes(uint64(e.Summary.Bytes)),
			e.Root,
		)
	}
	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, _, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	e, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", e.ID)
	fmt.Fprintf(out, "Timestamp:   %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Operation:   %s\n", e.Operation)
	fmt.Fprintf(out, "Root:        %s\n", e.Root)
	if e.Output != "" {
		fmt.Fprintf(out, "Output:      %s\n", e.Output)
	}
	fmt.Fprintf(out, "Format:      %s\n", e.Format)
	fmt.Fprintf(out, "Digests:     %s\n", strings.Join(e.Algorithms, ", "))
	fmt.Fprintf(out, "Dedup:       %s\n", e.Dedup)
	fmt.Fprintf(out, "Files:       %s seen, %s written\n", humanize.Comma(e.Summary.Files), humanize.Comma(e.Summary.Survivors))
	fmt.Fprintf(out, "Hashed:      %s\n", humanize.IBytes(uint64(e.Summary.Bytes)))
	fmt.Fprintf(out, "Merged:      %d\n", e.Summary.Merges)
	fmt.Fprintf(out, "Collisions:  %d\n", e.Summary.Collisions)
	fmt.Fprintf(out, "Skipped:     %d\n", e.Summary.Skipped)
	fmt.Fprintf(out, "Filtered:    %d\n", e.Summary.Filtered)
	fmt.Fprintf(out, "Elapsed:     %s\n", e.Summary.Elapsed)
	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	m, retentionDays, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d history entries older than %d days", removed, retentionDays)
	return nil
}

// shortID truncates a run ID for the listing.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
