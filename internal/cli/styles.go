package cli

import "github.com/charmbracelet/lipgloss"

// Chat palette. Styles degrade to plain text when stdout is not a terminal.
var (
	leafGreen = lipgloss.Color("#8BC34A")
	soilGray  = lipgloss.Color("#8a8f98")
	amber     = lipgloss.Color("#FFC107")
	clay      = lipgloss.Color("#e53935")

	introStyle  = lipgloss.NewStyle().Foreground(leafGreen).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(leafGreen)
	detailStyle = lipgloss.NewStyle().Foreground(soilGray).Italic(true)
	noticeStyle = lipgloss.NewStyle().Foreground(amber)
	errorStyle  = lipgloss.NewStyle().Foreground(clay)
)
