package tui

import (
	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jarscope/utils"
)

type barItem struct {
	label string
	value int
	color lipgloss.Color
}

// renderBarChart draws vertical bars, one per item, with a bar per label column
func renderBarChart(items []barItem, width, height int) string {
	if len(items) == 0 {
		return ""
	}

	data := make([]barchart.BarData, 0, len(items))
	for _, it := range items {
		data = append(data, barchart.BarData{
			Label: it.label,
			Values: []barchart.BarValue{{
				Name:  it.label,
				Value: float64(it.value),
				Style: lipgloss.NewStyle().Foreground(it.color),
			}},
		})
	}

	chart := barchart.New(width, height,
		barchart.WithDataSet(data),
		barchart.WithStyles(utils.MutedStyle, utils.TextStyle),
	)
	chart.Draw()
	return chart.View()
}
