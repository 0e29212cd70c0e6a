package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss,
// for terminal display. Files sharing a duplicate group are marked.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Collisions) > 0 || len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		labelStyle.Render("Source:") + " " + valueStyle.Render(r.Source),
		labelStyle.Render("Hashed:") + " " + valueStyle.Render(fmt.Sprintf("%d files in %s",
			r.Stats.FilesSeen, formatDuration(r.Stats.Elapsed.Seconds()))),
	}
	if r.Generator != "" {
		lines = append(lines, dimStyle.Render(r.Generator))
	}
	return box(ColorAccent).MarginBottom(1).Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Files) == 0 {
		return dimStyle.Render("  No files found") + "\n"
	}

	groupSize := make(map[int]int)
	for _, file := range r.Files {
		groupSize[file.Group]++
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		columnStyle.Render(padLeft("SIZE", 10)),
		columnStyle.Render("URLS"),
		columnStyle.Render("PATH")))

	for _, file := range r.Files {
		path := valueStyle.Render(file.Name)
		if groupSize[file.Group] > 1 {
			path += " " + duplicateStyle.Render(fmt.Sprintf("(dup #%d)", file.Group))
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			sizeStyle.Render(padLeft(types.FormatSize(file.Size), 10)),
			valueStyle.Render(padLeft(fmt.Sprint(len(file.Locations)), 4)),
			path))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		labelStyle.Render("Files:") + " " + valueStyle.Render(fmt.Sprint(len(r.Files))),
		labelStyle.Render("Total:") + " " + sizeStyle.Render(types.FormatSize(r.TotalSize())),
	}
	if r.Stats.Merges > 0 {
		parts = append(parts, labelStyle.Render("Merged:")+" "+mergedStyle.Render(fmt.Sprint(r.Stats.Merges)))
	}
	parts = append(parts, dimStyle.Render("Use -F metalink for the manifest document"))
	return box(ColorDim).MarginTop(1).Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(r *Result) string {
	var sb strings.Builder
	sb.WriteString(duplicateStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, c := range r.Collisions {
		sb.WriteString(collisionStyle.Render(fmt.Sprintf("  %s collision: %s and %s", c.Algorithm, c.First, c.Second)))
		sb.WriteString("\n")
	}
	for _, warning := range r.Warnings {
		sb.WriteString(duplicateStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
