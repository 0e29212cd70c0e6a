// Package tui provides the interactive progress view shown while dir2ml
// hashes a tree. It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/output"
)

// The view shares the palette of the pretty formatter so that the progress
// box and the final statistics box look alike.
var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(output.ColorAccent).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(output.ColorDim).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(output.ColorAccent)
	dimStyle     = lipgloss.NewStyle().Foreground(output.ColorDim)
	numberStyle  = lipgloss.NewStyle().Bold(true).Foreground(output.ColorText)
	okStyle      = lipgloss.NewStyle().Foreground(output.ColorOK)
	warnStyle    = lipgloss.NewStyle().Foreground(output.ColorDuplicate)
	failStyle    = lipgloss.NewStyle().Foreground(output.ColorCollision)
)

const (
	barFull  = "█"
	barEmpty = "░"
)

func rule(width int) string {
	return dimStyle.Render(strings.Repeat("─", max(width, 0)))
}

// truncatePath shortens path to maxLen, keeping its tail.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-(maxLen-3):]
}
