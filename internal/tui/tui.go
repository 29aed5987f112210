// Package tui implements the interactive terminal report viewer.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/report"
)

// Model is the top-level Bubble Tea model of the report viewer.
type Model struct {
	report   *model.Report
	sections []report.Section

	// UI state
	width  int
	height int

	// Section list
	index int

	// Content viewport
	scrollOffset int
	viewHeight   int

	help     help.Model
	showHelp bool
}

// New creates a viewer for r.
func New(r *model.Report) Model {
	return Model{
		report:   r,
		sections: report.Sections(r),
		help:     help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewHeight = m.height - 7 // header, status bar, borders, section title
		if m.viewHeight < 1 {
			m.viewHeight = 1
		}
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Down):
			m.scrollOffset++

		case key.Matches(msg, keys.Up):
			m.scrollOffset--

		case key.Matches(msg, keys.PageDown):
			m.scrollOffset += m.viewHeight

		case key.Matches(msg, keys.PageUp):
			m.scrollOffset -= m.viewHeight

		case key.Matches(msg, keys.Top):
			m.scrollOffset = 0

		case key.Matches(msg, keys.Bottom):
			m.scrollOffset = len(m.currentLines())

		case key.Matches(msg, keys.NextSection):
			if m.index < len(m.sections)-1 {
				m.index++
				m.scrollOffset = 0
			}

		case key.Matches(msg, keys.PrevSection):
			if m.index > 0 {
				m.index--
				m.scrollOffset = 0
			}

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		}
		m.clampScroll()
	}

	return m, nil
}

func (m Model) currentLines() []string {
	if len(m.sections) == 0 {
		return nil
	}
	return m.sections[m.index].Lines
}

// clampScroll keeps the last page full when the section is long enough.
func (m *Model) clampScroll() {
	maxOffset := len(m.currentLines()) - m.viewHeight
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := report.Header(m.report)
	bodyHeight := m.height - 2 - lipgloss.Height(m.help.View(keys))

	listWidth := m.sectionListWidth()
	contentWidth := m.width - listWidth - 1

	list := m.renderSectionList(listWidth, bodyHeight)
	content := m.renderContent(contentWidth, bodyHeight)
	main := lipgloss.JoinHorizontal(lipgloss.Top, list, " ", content)

	return lipgloss.JoinVertical(lipgloss.Left, header, main, m.renderStatusBar(), helpBarStyle.Render(m.help.View(keys)))
}

// Run starts the viewer.
func Run(r *model.Report) error {
	p := tea.NewProgram(New(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
