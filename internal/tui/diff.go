package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jarscope/internal/model"
	"github.com/mabhi256/jarscope/utils"
)

var causeLabels = [...]string{"ver", "meth", "field", "line", "local", "size", "?"}

func (m *Model) diffPage() []string {
	switch m.currentTab {
	case DetailTab:
		return renderDifferences(m.diff, m.width)
	case ExtraTab:
		return renderMetadata(m.diff)
	default:
		return renderDiffSummary(m.diff, m.width)
	}
}

func renderDiffSummary(r *model.DiffResult, width int) []string {
	lines := []string{
		utils.TitleStyle.Render(fmt.Sprintf("%s vs %s", r.FirstID, r.SecondID)),
		utils.FormatKeyValue("Classes", fmt.Sprintf("%d vs %d", r.FirstCount, r.SecondCount), 16),
		utils.FormatKeyValue("Identical", fmt.Sprint(r.IdenticalCount()), 16),
		utils.FormatKeyValue("Different", fmt.Sprint(r.DifferentCount()), 16),
		utils.FormatKeyValue("Only in first", fmt.Sprint(r.OnlyInFirstCount()), 16),
		utils.FormatKeyValue("Only in second", fmt.Sprint(r.OnlyInSecondCount()), 16),
		utils.FormatKeyValue("Time", utils.FormatDuration(r.Elapsed), 16),
		"",
	}

	switch {
	case r.Failed:
		lines = append(lines, utils.CriticalStyle.Render("🔴 Comparison failed"))
	case r.AreIdentical():
		lines = append(lines, utils.GoodStyle.Render("✅ Builds are identical"))
	}
	if r.HasJdkMismatch() {
		lines = append(lines, utils.CriticalStyle.Render(fmt.Sprintf("🔴 JDK mismatch: %s vs %s",
			r.FirstMetadata.BuildJDK, r.SecondMetadata.BuildJDK)))
	}

	breakdown := r.CauseBreakdown()
	var items []barItem
	for _, c := range model.Causes {
		if breakdown[c] > 0 {
			items = append(items, barItem{label: causeLabels[c], value: breakdown[c], color: utils.WarningColor})
		}
	}
	if len(items) > 0 {
		lines = append(lines, "", utils.TitleStyle.Render("Likely causes"))
		lines = append(lines, strings.Split(renderBarChart(items, min(max(width-4, 20), 60), 8), "\n")...)
		for _, rc := range r.RankedCauses() {
			lines = append(lines, fmt.Sprintf("  %s %d", utils.PadRight(rc.Cause.String(), 22), rc.Count))
		}
	}

	lines = append(lines, "", utils.TitleStyle.Render("Recommendation"))
	wrapped := lipgloss.NewStyle().Width(max(width-2, 20)).Render(r.Recommendation())
	return append(lines, strings.Split(wrapped, "\n")...)
}

func renderDifferences(r *model.DiffResult, width int) []string {
	lines := []string{utils.TitleStyle.Render(fmt.Sprintf("%d differences", len(r.Differences))), ""}
	if len(r.Differences) == 0 {
		return append(lines, utils.GoodStyle.Render("✅ No differences"))
	}

	for _, d := range r.Differences {
		var marker string
		switch d.Kind {
		case model.OnlyInFirst:
			marker = utils.CriticalStyle.Render("−")
		case model.OnlyInSecond:
			marker = utils.GoodStyle.Render("+")
		default:
			marker = utils.WarningStyle.Render("✗")
		}
		lines = append(lines,
			marker+" "+d.ClassName,
			"    "+utils.TruncateString(d.Reason, max(width-6, 20)),
		)
		if d.Details != "" {
			lines = append(lines, "    "+utils.MutedStyle.Render(utils.TruncateString(d.Details, max(width-6, 20))))
		}
	}
	return lines
}

func renderMetadata(r *model.DiffResult) []string {
	row := func(label, a, b string) string {
		return fmt.Sprintf("%s %s %s", utils.InfoStyle.Render(utils.PadRight(label, 12)),
			utils.PadRight(orDash(a), 28), orDash(b))
	}
	lines := []string{
		utils.TitleStyle.Render("Manifest"),
		row("", r.FirstID, r.SecondID),
		row("Build JDK", r.FirstMetadata.BuildJDK, r.SecondMetadata.BuildJDK),
		row("Created-By", r.FirstMetadata.CreatedBy, r.SecondMetadata.CreatedBy),
		row("Built-By", r.FirstMetadata.BuiltBy, r.SecondMetadata.BuiltBy),
		row("Timestamp", r.FirstMetadata.Timestamp, r.SecondMetadata.Timestamp),
		row("Main-Class", r.FirstMetadata.MainClass, r.SecondMetadata.MainClass),
	}

	if len(r.Warnings) > 0 {
		lines = append(lines, "", utils.TitleStyle.Render(fmt.Sprintf("Warnings (%d)", len(r.Warnings))))
		for _, w := range r.Warnings {
			lines = append(lines, "  "+utils.MutedStyle.Render(w))
		}
	}
	return lines
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
