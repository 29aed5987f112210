package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/prlens/internal/model"
)

// Color palette shared with the terminal viewer.
var (
	ColorRed    = lipgloss.Color("#ff5555")
	ColorGreen  = lipgloss.Color("#50fa7b")
	ColorYellow = lipgloss.Color("#f1fa8c")
	ColorBlue   = lipgloss.Color("#8be9fd")
	ColorPurple = lipgloss.Color("#bd93f9")
	ColorDim    = lipgloss.Color("#6272a4")
	ColorFg     = lipgloss.Color("#f8f8f2")
	ColorOrange = lipgloss.Color("#ffb86c")
	ColorBorder = lipgloss.Color("#44475a")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorPurple).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true).
			Padding(1, 0, 0, 0)

	addedStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	deletedStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	fileStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	highStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	mediumStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	lowStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	warningStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)
)

// SeverityStyle returns the style used for items of the given severity.
func SeverityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityHigh:
		return highStyle
	case model.SeverityMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

// ScoreStyle colors a risk score by band.
func ScoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return highStyle
	case score >= 40:
		return warningStyle
	case score >= 20:
		return mediumStyle
	default:
		return addedStyle
	}
}
