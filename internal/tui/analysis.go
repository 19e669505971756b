package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jarscope/internal/model"
	"github.com/mabhi256/jarscope/utils"
)

var kindColors = [...]lipgloss.Color{
	utils.InfoColor, utils.GoodColor, utils.WarningColor, utils.InfoLightColor, utils.CriticalColor,
}

// kindLabels keep chart columns narrow
var kindLabels = [...]string{"virt", "static", "spec", "iface", "dyn"}

func (m *Model) current() *model.AnalysisResult {
	if m.reverse && m.analysis.reverse != nil {
		return m.analysis.reverse
	}
	return m.analysis.forward
}

func (m *Model) analysisPage() []string {
	switch m.currentTab {
	case DetailTab:
		return renderCalls(m.current(), m.width)
	case ExtraTab:
		return renderReflection(m.current(), m.width)
	default:
		return m.renderAnalysisSummary()
	}
}

func directionTitle(r *model.AnalysisResult) string {
	return fmt.Sprintf("%s → %s", baseName(r.SourceID), baseName(r.TargetID))
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (m *Model) renderAnalysisSummary() []string {
	var lines []string
	results := []*model.AnalysisResult{m.analysis.forward}
	if m.analysis.reverse != nil {
		results = append(results, m.analysis.reverse)
	}

	for _, r := range results {
		lines = append(lines, utils.TitleStyle.Render(directionTitle(r)))
		cov := r.Coverage()
		lines = append(lines,
			utils.FormatKeyValue("Matching calls", fmt.Sprint(r.MatchingCallCount()), 18),
			utils.FormatKeyValue("Source calls", fmt.Sprint(r.SourceCallCount), 18),
			utils.FormatKeyValue("Target methods", fmt.Sprint(r.TargetDefinitionCount), 18),
			utils.FormatKeyValue("Coverage", fmt.Sprintf("%s %.1f%%",
				utils.CreateProgressBar(cov/100, 20, utils.CoverageColor(cov)), cov), 18),
			utils.FormatKeyValue("Reflection sites", fmt.Sprint(len(r.Reflective)), 18),
			utils.FormatKeyValue("Time", utils.FormatDuration(r.Elapsed), 18),
		)

		if r.MatchingCallCount() > 0 {
			byKind := r.CallsByKind()
			var items []barItem
			for _, k := range model.InvokeKinds {
				items = append(items, barItem{label: kindLabels[k], value: byKind[k], color: kindColors[k]})
			}
			chart := renderBarChart(items, min(max(m.width-4, 20), 50), 8)
			lines = append(lines, "")
			lines = append(lines, strings.Split(chart, "\n")...)
		}
		lines = append(lines, "")
	}

	if m.analysis.reverse != nil {
		bi := model.BidirectionalResult{Forward: m.analysis.forward, Reverse: m.analysis.reverse}
		if bi.HasCycle() {
			lines = append(lines, utils.WarningStyle.Render("⚠️  Circular dependency: each archive calls into the other"))
		}
	}
	return lines
}

func renderCalls(r *model.AnalysisResult, width int) []string {
	calls := r.Matching.Sorted()
	lines := []string{
		utils.TitleStyle.Render(fmt.Sprintf("%s  (%d matching calls)", directionTitle(r), len(calls))),
		"",
	}
	if len(calls) == 0 {
		return append(lines, utils.MutedStyle.Render("No calls into the target archive"))
	}

	for _, c := range calls {
		kind := utils.InfoStyle.Render(utils.PadRight(c.Kind().String(), 16))
		target := utils.TruncateString(c.Signature().Full(), max(width-40, 20))
		lines = append(lines, fmt.Sprintf("%s %s  %s", kind, target, utils.MutedStyle.Render(c.Site().String())))
	}
	return lines
}

func renderReflection(r *model.AnalysisResult, width int) []string {
	lines := []string{
		utils.TitleStyle.Render(fmt.Sprintf("%s  (%d reflective sites)", directionTitle(r), len(r.Reflective))),
		"",
	}
	if !r.HasReflectionWarnings() {
		return append(lines, utils.GoodStyle.Render("✅ No reflection detected"))
	}

	byKind := r.ReflectionByKind()
	for _, kind := range model.ReflectionKinds {
		if byKind[kind] == 0 {
			continue
		}
		lines = append(lines,
			utils.WarningStyle.Render(fmt.Sprintf("%s (%d)", kind.Pattern(), byKind[kind])),
			"  "+utils.MutedStyle.Render(utils.TruncateString(kind.Implication(), max(width-4, 20))),
		)
	}
	lines = append(lines, "")

	for _, rc := range r.Reflective {
		lines = append(lines, "  "+utils.TruncateString(rc.Readable(), max(width-4, 20)))
	}
	return lines
}
