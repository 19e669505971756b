package utils

import (
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	TextColor     = lipgloss.Color("#CCCCCC") // Light gray
	MutedColor    = lipgloss.Color("#888888") // Medium gray
	BorderColor   = lipgloss.Color("#666666") // Dark gray

	InfoLightColor = lipgloss.Color("#88AACC")
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TextStyle     = lipgloss.NewStyle().Foreground(TextColor)
)

var (
	TabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(InfoColor).
			Padding(0, 1).
			Bold(true)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Padding(0, 1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	HelpBarStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 1)
)

type TerminalCapabilities struct {
	SupportsUnicode bool
	SupportsColor   bool
	Interactive     bool
}

var termCaps = detectTerminalCapabilities()

func detectTerminalCapabilities() TerminalCapabilities {
	term := os.Getenv("TERM")
	interactive := IsInteractive(os.Stdout)
	return TerminalCapabilities{
		SupportsUnicode: utf8.RuneCountInString("█░") == 2 && term != "linux",
		SupportsColor:   interactive && term != "dumb" && os.Getenv("NO_COLOR") == "",
		Interactive:     interactive,
	}
}

// IsInteractive reports whether f is attached to a terminal
func IsInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Terminal returns what was detected about stdout at startup
func Terminal() TerminalCapabilities {
	return termCaps
}

// CreateProgressBar renders a fraction in [0,1] as a fixed width bar
func CreateProgressBar(fraction float64, width int, color lipgloss.Color) string {
	if width < 4 {
		return fmt.Sprintf("%.0f%%", fraction*100)
	}

	fill, empty := "█", "░"
	if !termCaps.SupportsUnicode {
		fill, empty = "#", "-"
	}

	filled := int(math.Round(fraction * float64(width)))
	filled = max(0, min(filled, width))
	bar := strings.Repeat(fill, filled) + strings.Repeat(empty, width-filled)

	if termCaps.SupportsColor && color != "" {
		bar = lipgloss.NewStyle().Foreground(color).Render(bar)
	}
	return bar
}

// CoverageColor grades a coverage percentage
func CoverageColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 50:
		return GoodColor
	case pct >= 10:
		return InfoColor
	default:
		return MutedColor
	}
}

func FormatKeyValue(key, value string, keyWidth int) string {
	keyStyled := InfoStyle.Width(keyWidth).Render(key + ":")
	return lipgloss.JoinHorizontal(lipgloss.Left, keyStyled, " ", TextStyle.Render(value))
}

// TruncateString shortens s to maxWidth runes, marking the cut with an ellipsis
func TruncateString(s string, maxWidth int) string {
	if utf8.RuneCountInString(s) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return strings.Repeat(".", max(maxWidth, 0))
	}
	r := []rune(s)
	return string(r[:maxWidth-3]) + "..."
}

func PadRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
