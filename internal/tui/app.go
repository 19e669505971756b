// Package tui is an interactive browser for analysis and build comparison results.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jarscope/internal/model"
	"github.com/mabhi256/jarscope/utils"
)

const PageSize = 10 // Number of lines to scroll per page

// chrome is the number of lines taken by the header and help bar
const chrome = 4

func newModel() *Model {
	m := &Model{
		currentTab:      SummaryTab,
		keys:            DefaultKeyMap(),
		help:            help.New(),
		scrollPositions: make(map[TabType]int),
	}
	return m
}

// NewAnalysisModel browses a dependency analysis; reverse may be nil
func NewAnalysisModel(forward, reverse *model.AnalysisResult, sampleCalls int) *Model {
	m := newModel()
	m.analysis = &analysisData{forward: forward, reverse: reverse, sampleCalls: sampleCalls}
	if reverse == nil {
		m.keys.Direction.SetEnabled(false)
	}
	return m
}

func NewDiffModel(res *model.DiffResult) *Model {
	m := newModel()
	m.diff = res
	m.keys.Direction.SetEnabled(false)
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab1):
			m.currentTab = SummaryTab
		case key.Matches(msg, m.keys.Tab2):
			m.currentTab = DetailTab
		case key.Matches(msg, m.keys.Tab3):
			m.currentTab = ExtraTab

		case key.Matches(msg, m.keys.Left):
			m.currentTab = utils.CycleEnum(m.currentTab, -1, tabCount)
		case key.Matches(msg, m.keys.Right):
			m.currentTab = utils.CycleEnum(m.currentTab, 1, tabCount)

		case key.Matches(msg, m.keys.Up):
			m.scroll(-1)
		case key.Matches(msg, m.keys.Down):
			m.scroll(1)
		case key.Matches(msg, m.keys.PageUp):
			m.scroll(-PageSize)
		case key.Matches(msg, m.keys.PageDown):
			m.scroll(PageSize)

		case key.Matches(msg, m.keys.Direction):
			m.reverse = !m.reverse
			m.scrollPositions = make(map[TabType]int)
		}
	}

	return m, nil
}

// scroll moves the current page; the upper bound is applied while rendering
func (m *Model) scroll(delta int) {
	m.scrollPositions[m.currentTab] = max(0, m.scrollPositions[m.currentTab]+delta)
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var lines []string
	if m.analysis != nil {
		lines = m.analysisPage()
	} else {
		lines = m.diffPage()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.window(lines, m.height-chrome),
		utils.HelpBarStyle.Render(m.help.View(m.keys)),
	)
}

// window shows the visible slice of a page and clamps the stored scroll position
func (m *Model) window(lines []string, height int) string {
	height = max(height, 1)
	maxOffset := max(0, len(lines)-height)
	offset := min(m.scrollPositions[m.currentTab], maxOffset)
	m.scrollPositions[m.currentTab] = offset

	end := min(offset+height, len(lines))
	visible := lines[offset:end]
	for len(visible) < height {
		visible = append(visible, "")
	}
	return strings.Join(visible, "\n")
}

func (m *Model) tabNames() ([]string, []string) {
	if m.analysis != nil {
		return []string{"Summary", "Calls", "Reflection"}, []string{"📊", "🔄", "⚠️"}
	}
	return []string{"Summary", "Differences", "Metadata"}, []string{"📊", "📋", "📦"}
}

func (m *Model) renderHeader() string {
	names, icons := m.tabNames()

	var tabs []string
	for i, name := range names {
		style := utils.TabInactiveStyle
		indicator := " "

		if TabType(i) == m.currentTab {
			style = utils.TabActiveStyle
			indicator = "●"
		}

		tabs = append(tabs, style.Render(fmt.Sprintf("%s %s %s [%d]", indicator, icons[i], name, i+1)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(tabs, "  "),
		strings.Repeat("─", m.width),
	)
}

func start(m *Model) error {
	program := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := program.Run()
	return err
}

func StartAnalysisTUI(forward, reverse *model.AnalysisResult, sampleCalls int) error {
	return start(NewAnalysisModel(forward, reverse, sampleCalls))
}

func StartDiffTUI(res *model.DiffResult) error {
	return start(NewDiffModel(res))
}
