package output

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// StatsLine returns the one-line run summary: bytes, files, seconds and
// throughput.
func StatsLine(s types.Stats) string {
	return fmt.Sprintf("%s bytes, %s files, %.2f seconds, %.2f Mbps",
		humanize.Comma(s.BytesHashed), humanize.Comma(s.FilesSeen), s.Elapsed.Seconds(), s.Mbps())
}

// RenderStats returns the styled statistics block printed to stderr.
func RenderStats(s types.Stats) string {
	rows := [][2]string{
		{"Hashed", fmt.Sprintf("%s (%s)", types.FormatSize(s.BytesHashed), humanize.Comma(s.BytesHashed)+" bytes")},
		{"Files", humanize.Comma(s.FilesSeen)},
		{"Directories", humanize.Comma(s.DirsVisited)},
		{"Survivors", humanize.Comma(s.Survivors)},
		{"Merged", humanize.Comma(s.Merges)},
		{"Collisions", humanize.Comma(s.Collisions)},
		{"Skipped", humanize.Comma(s.Skipped)},
		{"Filtered", humanize.Comma(s.Filtered)},
		{"Elapsed", fmt.Sprintf("%.2fs", s.Elapsed.Seconds())},
		{"Throughput", fmt.Sprintf("%.2f Mbps", s.Mbps())},
	}

	lines := []string{titleStyle.Render("Statistics")}
	for _, row := range rows {
		style := valueStyle
		if row[0] == "Collisions" && s.Collisions > 0 {
			style = collisionStyle
		}
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-12s", row[0]))+style.Render(row[1]))
	}
	return box(ColorOK).Render(strings.Join(lines, "\n"))
}
