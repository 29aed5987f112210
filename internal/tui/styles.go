package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/prlens/internal/report"
)

var (
	colorBgLight   = lipgloss.Color("#343746")
	colorHighlight = lipgloss.Color("#44475a")
)

var (
	// Section list styles
	sectionListStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(report.ColorBorder).
				Padding(0, 1)

	sectionItemStyle = lipgloss.NewStyle().
				Foreground(report.ColorFg)

	sectionItemSelectedStyle = lipgloss.NewStyle().
					Foreground(report.ColorFg).
					Background(colorHighlight).
					Bold(true)

	sectionWarningStyle = lipgloss.NewStyle().
				Foreground(report.ColorOrange)

	// Content styles
	contentViewStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(report.ColorBorder).
				Padding(0, 1)

	contentHeaderStyle = lipgloss.NewStyle().
				Foreground(report.ColorBlue).
				Bold(true).
				Padding(0, 0, 1, 0)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(report.ColorFg).
			Background(colorBgLight).
			Padding(0, 1)

	helpBarStyle = lipgloss.NewStyle().
			Foreground(report.ColorDim)
)
