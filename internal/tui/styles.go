package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorGreen   = lipgloss.Color("#00FF00")
	colorRed     = lipgloss.Color("#FF0000")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorGray    = lipgloss.Color("#666666")
	colorDimGray = lipgloss.Color("#444444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	stageDoneStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	stageActiveStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	stagePendingStyle = lipgloss.NewStyle().
				Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	eventStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	barFillStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)
