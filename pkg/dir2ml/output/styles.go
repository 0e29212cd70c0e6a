package output

import "github.com/charmbracelet/lipgloss"

// Palette shared by the terminal renderers, in ANSI 256-color codes.
const (
	ColorAccent    = lipgloss.Color("39")
	ColorOK        = lipgloss.Color("42")
	ColorDuplicate = lipgloss.Color("214")
	ColorCollision = lipgloss.Color("196")
	ColorDim       = lipgloss.Color("245")
	ColorText      = lipgloss.Color("255")
)

// box returns a rounded frame in the given border color.
func box(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	titleStyle     = fg(ColorAccent).Bold(true)
	labelStyle     = fg(ColorDim)
	valueStyle     = fg(ColorText)
	dimStyle       = fg(ColorDim)
	sizeStyle      = fg(ColorAccent).Bold(true)
	mergedStyle    = fg(ColorOK)
	duplicateStyle = fg(ColorDuplicate)
	collisionStyle = fg(ColorCollision)
	columnStyle    = fg(ColorDim).Bold(true).PaddingRight(2)
)
