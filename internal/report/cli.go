package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mabhi256/jarscope/internal/model"
	"github.com/mabhi256/jarscope/utils"
)

// maxReflectionLines caps the reflection listing in the terminal report
const maxReflectionLines = 20

func rule(w io.Writer, heavy bool) {
	if heavy {
		fmt.Fprintln(w, strings.Repeat("═", 65))
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 35))
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", utils.TitleStyle.UnsetPadding().Render(title))
	rule(w, false)
}

func printDependencies(w io.Writer, opts Options, forward, reverse *model.AnalysisResult) {
	printAnalysis(w, opts, forward)
	if reverse == nil {
		return
	}
	fmt.Fprintln(w)
	printAnalysis(w, opts, reverse)

	bi := model.BidirectionalResult{Forward: forward, Reverse: reverse}
	section(w, "🔁 BIDIRECTIONAL SUMMARY")
	for _, line := range strings.Split(bi.Summary(), "\n") {
		fmt.Fprintf(w, "   %s\n", line)
	}
	if bi.HasCycle() {
		fmt.Fprintf(w, "%s\n", utils.WarningStyle.Render("⚠️  Circular dependency: each archive calls into the other"))
	}
}

func printAnalysis(w io.Writer, opts Options, r *model.AnalysisResult) {
	rep := NewAnalysisReport(r, opts.SampleCalls)

	fmt.Fprintf(w, "🔍 Dependency Analysis: %s → %s\n", rep.SourceJar, rep.TargetJar)
	fmt.Fprintf(w, "Target methods: %d  |  Source calls: %d  |  Time: %s\n",
		rep.TargetMethodCount, rep.SourceCallCount, utils.FormatDuration(r.Elapsed))
	rule(w, true)

	section(w, "📈 SUMMARY")
	coverage := r.Coverage()
	icon := "✅"
	if rep.MatchingCallCount == 0 {
		icon = "⚪"
	}
	fmt.Fprintf(w, "%s Matching calls: %d\n", icon, rep.MatchingCallCount)
	fmt.Fprintf(w, "   Coverage: %s %s of target methods reached\n",
		utils.CreateProgressBar(coverage/100, 20, utils.CoverageColor(coverage)), rep.CoveragePercentage)

	if rep.MatchingCallCount > 0 {
		section(w, "🔄 CALLS BY TYPE")
		byKind := r.CallsByKind()
		for _, k := range model.InvokeKinds {
			if byKind[k] == 0 {
				continue
			}
			fmt.Fprintf(w, "   %s %5d  %s\n", utils.PadRight(k.String(), 16), byKind[k],
				utils.MutedStyle.Render(fmt.Sprintf("%s, e.g. %s", k.Description(), k.Example())))
		}

		section(w, fmt.Sprintf("📋 SAMPLE CALLS (%d of %d)", len(rep.SampleCalls), rep.MatchingCallCount))
		for _, c := range r.SampleCalls(opts.SampleCalls) {
			fmt.Fprintf(w, "   %s\n", c.Detailed())
		}
	}

	if r.HasReflectionWarnings() {
		section(w, fmt.Sprintf("⚠️  REFLECTION WARNINGS (%d)", len(r.Reflective)))
		fmt.Fprintln(w, utils.WarningStyle.Render("   Static analysis cannot see every call made through these sites."))

		byKind := r.ReflectionByKind()
		for _, kind := range model.ReflectionKinds {
			n := byKind[kind]
			if n == 0 {
				continue
			}
			fmt.Fprintf(w, "   %s %d: %s\n", utils.PadRight(kind.Pattern(), 28), n, kind.Implication())
		}
		fmt.Fprintln(w)
		for i, rc := range r.Reflective {
			if i == maxReflectionLines {
				fmt.Fprintf(w, "   %s\n", utils.MutedStyle.Render(fmt.Sprintf("... %d more", len(r.Reflective)-i)))
				break
			}
			fmt.Fprintf(w, "   %s\n", rc.Readable())
		}
	}

	if len(r.Errors) > 0 {
		section(w, fmt.Sprintf("❗ SKIPPED ENTRIES (%d)", len(r.Errors)))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "   %s\n", utils.MutedStyle.Render(e.Error()))
		}
	}
}

func printDiff(w io.Writer, r *model.DiffResult) {
	fmt.Fprintf(w, "🔍 Build Comparison: %s vs %s\n", r.FirstID, r.SecondID)
	fmt.Fprintf(w, "Classes: %d vs %d  |  Time: %s\n", r.FirstCount, r.SecondCount, utils.FormatDuration(r.Elapsed))
	rule(w, true)

	section(w, "📦 BUILD METADATA")
	meta := func(label, a, b string) {
		if a == "" && b == "" {
			return
		}
		fmt.Fprintf(w, "   %s %s | %s\n", utils.PadRight(label+":", 12), utils.PadRight(orUnknown(a), 24), orUnknown(b))
	}
	meta("Build JDK", r.FirstMetadata.BuildJDK, r.SecondMetadata.BuildJDK)
	meta("Created-By", r.FirstMetadata.CreatedBy, r.SecondMetadata.CreatedBy)
	meta("Built-By", r.FirstMetadata.BuiltBy, r.SecondMetadata.BuiltBy)
	meta("Timestamp", r.FirstMetadata.Timestamp, r.SecondMetadata.Timestamp)
	meta("Main-Class", r.FirstMetadata.MainClass, r.SecondMetadata.MainClass)

	section(w, "📈 SUMMARY")
	if r.Failed {
		fmt.Fprintf(w, "%s\n", utils.CriticalStyle.Render("🔴 Comparison failed"))
	}
	if r.AreIdentical() {
		fmt.Fprintf(w, "%s\n", utils.GoodStyle.Render("✅ Builds are identical"))
	}
	fmt.Fprintf(w, "   Identical:      %d\n", r.IdenticalCount())
	fmt.Fprintf(w, "   Different:      %d\n", r.DifferentCount())
	fmt.Fprintf(w, "   Only in first:  %d\n", r.OnlyInFirstCount())
	fmt.Fprintf(w, "   Only in second: %d\n", r.OnlyInSecondCount())
	if r.HasJdkMismatch() {
		fmt.Fprintf(w, "%s\n", utils.CriticalStyle.Render(fmt.Sprintf("🔴 JDK mismatch: %s vs %s",
			r.FirstMetadata.BuildJDK, r.SecondMetadata.BuildJDK)))
	}

	if ranked := r.RankedCauses(); len(ranked) > 0 {
		section(w, "🧭 LIKELY CAUSES")
		total := r.DifferentCount()
		for _, rc := range ranked {
			fmt.Fprintf(w, "   %s %s %d\n", utils.PadRight(rc.Cause.String(), 20),
				utils.CreateProgressBar(float64(rc.Count)/float64(max(total, 1)), 15, utils.WarningColor), rc.Count)
		}
	}

	if len(r.Differences) > 0 {
		section(w, fmt.Sprintf("📋 DIFFERENCES (%d)", len(r.Differences)))
		for _, d := range r.Differences {
			marker := "✗"
			switch d.Kind {
			case model.OnlyInFirst:
				marker = "−"
			case model.OnlyInSecond:
				marker = "+"
			}
			fmt.Fprintf(w, "%s %s\n", marker, d.ClassName)
			fmt.Fprintf(w, "   %s\n", d.Reason)
			if d.Details != "" {
				fmt.Fprintf(w, "   %s\n", utils.MutedStyle.Render(d.Details))
			}
		}
	}

	if len(r.Warnings) > 0 {
		section(w, fmt.Sprintf("❗ WARNINGS (%d)", len(r.Warnings)))
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "   %s\n", warning)
		}
	}

	section(w, "💡 RECOMMENDATION")
	fmt.Fprintf(w, "   %s\n", r.Recommendation())
}
