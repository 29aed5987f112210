package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) sectionListWidth() int {
	w := 24
	if w > m.width/3 {
		w = m.width / 3
	}
	if w < 12 {
		w = 12
	}
	return w
}

func (m Model) renderSectionList(width, height int) string {
	var b strings.Builder

	for i, s := range m.sections {
		line := fmt.Sprintf("%s (%d)", s.Title, len(s.Lines))

		style := sectionItemStyle
		switch {
		case i == m.index:
			style = sectionItemSelectedStyle
		case s.ID == "warnings":
			style = sectionWarningStyle
		}

		b.WriteString(style.Width(width - 4).MaxWidth(width - 4).Render(line))
		if i < len(m.sections)-1 {
			b.WriteByte('\n')
		}
	}

	return sectionListStyle.Width(width).Height(height - 2).Render(b.String())
}

func (m Model) renderContent(width, height int) string {
	innerHeight := height - 2
	if len(m.sections) == 0 {
		return contentViewStyle.Width(width).Height(innerHeight).Render("Empty report")
	}

	s := m.sections[m.index]
	innerWidth := width - 4 // borders + padding

	var b strings.Builder
	b.WriteString(contentHeaderStyle.Render(s.Title))
	b.WriteByte('\n')

	end := m.scrollOffset + m.viewHeight
	if end > len(s.Lines) {
		end = len(s.Lines)
	}
	for i := m.scrollOffset; i < end; i++ {
		b.WriteString(lipgloss.NewStyle().MaxWidth(innerWidth).Render(s.Lines[i]))
		if i < end-1 {
			b.WriteByte('\n')
		}
	}

	return contentViewStyle.Width(width).Height(innerHeight).Render(b.String())
}

func (m Model) renderStatusBar() string {
	left := fmt.Sprintf(" Section %d/%d", m.index+1, len(m.sections))
	if n := len(m.currentLines()); n > 0 {
		left += fmt.Sprintf("  Line %d/%d", m.scrollOffset+1, n)
	}

	right := fmt.Sprintf("risk %d/100  run %s ", m.report.RiskScore, m.report.RunID)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
