package tui

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jarscope/utils"
)

var ErrCanceled = errors.New("operation canceled")

// RunSpinner shows a spinner on stderr while action runs. When stderr is not a
// terminal the action runs without any UI.
func RunSpinner(ctx context.Context, title string, action func(context.Context) error) error {
	if !utils.IsInteractive(os.Stderr) {
		return action(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- action(ctx) }()

	m := newSpinnerModel(title, done, cancel)
	if _, err := tea.NewProgram(m, tea.WithOutput(os.Stderr)).Run(); err != nil {
		return err
	}
	return m.err
}

type actionDoneMsg struct{ err error }

type spinnerModel struct {
	title  string
	spin   spinner.Model
	done   <-chan error
	cancel context.CancelFunc
	ended  bool
	err    error
	style  lipgloss.Style
}

func newSpinnerModel(title string, done <-chan error, cancel context.CancelFunc) *spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(utils.InfoColor)

	return &spinnerModel{
		title:  title,
		spin:   s,
		done:   done,
		cancel: cancel,
		style:  lipgloss.NewStyle().Padding(0, 1),
	}
}

func (m *spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.wait)
}

func (m *spinnerModel) wait() tea.Msg {
	return actionDoneMsg{err: <-m.done}
}

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.ended = true
			m.err = ErrCanceled
			return m, tea.Quit
		}
	case actionDoneMsg:
		m.ended = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *spinnerModel) View() string {
	if m.ended {
		if m.err != nil {
			return m.style.Render("✗ " + m.title + " (" + m.err.Error() + ")\n")
		}
		return m.style.Render("✓ " + m.title + "\n")
	}
	return m.style.Render(m.spin.View() + " " + m.title)
}
