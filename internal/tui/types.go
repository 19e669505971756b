package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"

	"github.com/mabhi256/jarscope/internal/model"
)

type Model struct {
	// Data, exactly one of analysis or diff is set
	analysis *analysisData
	diff     *model.DiffResult

	// UI State
	currentTab      TabType
	width           int
	height          int
	scrollPositions map[TabType]int
	reverse         bool // analysis pages show the reverse direction

	keys KeyMap
	help help.Model
}

type analysisData struct {
	forward     *model.AnalysisResult
	reverse     *model.AnalysisResult // nil for one-way analysis
	sampleCalls int
}

type TabType int

const (
	SummaryTab TabType = iota
	DetailTab          // Calls or Differences
	ExtraTab           // Reflection or Metadata
	tabCount
)

type KeyMap struct {
	Tab1      key.Binding
	Tab2      key.Binding
	Tab3      key.Binding
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Direction key.Binding
	Quit      key.Binding
}

func k(keys []string, help, desc string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(help, desc),
	)
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:      k([]string{"1"}, "1", "summary"),
		Tab2:      k([]string{"2"}, "2", "details"),
		Tab3:      k([]string{"3"}, "3", "extra"),
		Left:      k([]string{"left", "h"}, "←/h", "prev tab"),
		Right:     k([]string{"right", "l"}, "→/l", "next tab"),
		Up:        k([]string{"up", "k"}, "↑/k", "up"),
		Down:      k([]string{"down", "j"}, "↓/j", "down"),
		PageUp:    k([]string{"pgup", "b"}, "pgup", "page up"),
		PageDown:  k([]string{"pgdown", "f", " "}, "pgdn", "page down"),
		Direction: k([]string{"d"}, "d", "flip direction"),
		Quit:      k([]string{"q", "ctrl+c"}, "q", "quit"),
	}
}

// ShortHelp implements help.KeyMap
func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Left, km.Right, km.Up, km.Down, km.Direction, km.Quit}
}

func (km KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Tab1, km.Tab2, km.Tab3, km.Left, km.Right},
		{km.Up, km.Down, km.PageUp, km.PageDown},
		{km.Direction, km.Quit},
	}
}
