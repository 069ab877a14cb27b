package cli

import "github.com/charmbracelet/lipgloss"

// Palette used for human-readable output. lipgloss drops colours when the
// output is not a terminal.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourAccent  = lipgloss.Color("#06B6D4")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourError   = lipgloss.Color("#F38BA8")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	scoreStyle   = lipgloss.NewStyle().Foreground(colourAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
	snippetStyle = lipgloss.NewStyle().PaddingLeft(6).Width(100)
)
