package report

import (
	"fmt"
	"path/filepath"

	"github.com/mabhi256/jarscope/internal/model"
)

// AnalysisReport is the serialisable view of one analysis direction
type AnalysisReport struct {
	SourceJar          string            `json:"sourceJar" yaml:"sourceJar"`
	TargetJar          string            `json:"targetJar" yaml:"targetJar"`
	TargetMethodCount  int               `json:"targetMethodCount" yaml:"targetMethodCount"`
	SourceCallCount    int               `json:"sourceCallCount" yaml:"sourceCallCount"`
	MatchingCallCount  int               `json:"matchingCallCount" yaml:"matchingCallCount"`
	CoveragePercentage string            `json:"coveragePercentage" yaml:"coveragePercentage"`
	AnalysisTimeMs     int64             `json:"analysisTimeMs" yaml:"analysisTimeMs"`
	CallsByType        map[string]int    `json:"callsByType" yaml:"callsByType"`
	SampleCalls        []string          `json:"sampleCalls" yaml:"sampleCalls"`
	ReflectionWarning  bool              `json:"reflectionWarning,omitempty" yaml:"reflectionWarning,omitempty"`
	ReflectionCount    int               `json:"reflectionCount,omitempty" yaml:"reflectionCount,omitempty"`
	ReflectiveCalls    []ReflectionEntry `json:"reflectiveCalls,omitempty" yaml:"reflectiveCalls,omitempty"`
	SkippedEntries     []string          `json:"skippedEntries,omitempty" yaml:"skippedEntries,omitempty"`
}

type ReflectionEntry struct {
	Type     string `json:"type" yaml:"type"`
	Pattern  string `json:"pattern" yaml:"pattern"`
	Location string `json:"location" yaml:"location"`
	Target   string `json:"target" yaml:"target"`
}

// DependencyReport holds either both directions or a single one-way result
type DependencyReport struct {
	Direction1 *AnalysisReport `json:"direction1,omitempty" yaml:"direction1,omitempty"`
	Direction2 *AnalysisReport `json:"direction2,omitempty" yaml:"direction2,omitempty"`
	Summary    string          `json:"summary,omitempty" yaml:"summary,omitempty"`
	Cycle      bool            `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	Result     *AnalysisReport `json:"result,omitempty" yaml:"result,omitempty"`
}

type MetadataReport struct {
	BuildJdk  string `json:"buildJdk" yaml:"buildJdk"`
	CreatedBy string `json:"createdBy" yaml:"createdBy"`
	BuiltBy   string `json:"builtBy,omitempty" yaml:"builtBy,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	MainClass string `json:"mainClass,omitempty" yaml:"mainClass,omitempty"`
}

type CauseCount struct {
	Cause string `json:"cause" yaml:"cause"`
	Count int    `json:"count" yaml:"count"`
}

type DifferenceEntry struct {
	Class   string `json:"class" yaml:"class"`
	Kind    string `json:"kind" yaml:"kind"`
	Reason  string `json:"reason" yaml:"reason"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

type DiffReport struct {
	Jar1               string            `json:"jar1" yaml:"jar1"`
	Jar2               string            `json:"jar2" yaml:"jar2"`
	AnalysisTimeMs     int64             `json:"analysisTimeMs" yaml:"analysisTimeMs"`
	Jar1Metadata       MetadataReport    `json:"jar1Metadata" yaml:"jar1Metadata"`
	Jar2Metadata       MetadataReport    `json:"jar2Metadata" yaml:"jar2Metadata"`
	Jar1ClassCount     int               `json:"jar1ClassCount" yaml:"jar1ClassCount"`
	Jar2ClassCount     int               `json:"jar2ClassCount" yaml:"jar2ClassCount"`
	IdenticalCount     int               `json:"identicalCount" yaml:"identicalCount"`
	DifferentCount     int               `json:"differentCount" yaml:"differentCount"`
	OnlyInJar1         int               `json:"onlyInJar1" yaml:"onlyInJar1"`
	OnlyInJar2         int               `json:"onlyInJar2" yaml:"onlyInJar2"`
	AreIdentical       bool              `json:"areIdentical" yaml:"areIdentical"`
	JdkMismatchWarning bool              `json:"jdkMismatchWarning,omitempty" yaml:"jdkMismatchWarning,omitempty"`
	Recommendation     string            `json:"recommendation" yaml:"recommendation"`
	Causes             []CauseCount      `json:"causes,omitempty" yaml:"causes,omitempty"`
	Differences        []DifferenceEntry `json:"differences" yaml:"differences"`
	Warnings           []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Failed             bool              `json:"failed,omitempty" yaml:"failed,omitempty"`
}

func NewAnalysisReport(r *model.AnalysisResult, sampleCalls int) *AnalysisReport {
	rep := &AnalysisReport{
		SourceJar:          filepath.Base(r.SourceID),
		TargetJar:          filepath.Base(r.TargetID),
		TargetMethodCount:  r.TargetDefinitionCount,
		SourceCallCount:    r.SourceCallCount,
		MatchingCallCount:  r.MatchingCallCount(),
		CoveragePercentage: fmt.Sprintf("%.1f%%", r.Coverage()),
		AnalysisTimeMs:     r.Elapsed.Milliseconds(),
		CallsByType:        map[string]int{},
		SampleCalls:        []string{},
	}

	byKind := r.CallsByKind()
	for _, k := range model.InvokeKinds {
		if byKind[k] > 0 {
			rep.CallsByType[k.String()] = byKind[k]
		}
	}
	for _, c := range r.SampleCalls(sampleCalls) {
		rep.SampleCalls = append(rep.SampleCalls, c.Readable())
	}

	if r.HasReflectionWarnings() {
		rep.ReflectionWarning = true
		rep.ReflectionCount = len(r.Reflective)
		for _, rc := range r.Reflective {
			target := rc.Target
			if !rc.HasTarget() {
				target = "unknown"
			}
			rep.ReflectiveCalls = append(rep.ReflectiveCalls, ReflectionEntry{
				Type:     rc.Kind.String(),
				Pattern:  rc.Pattern,
				Location: rc.Site.String(),
				Target:   target,
			})
		}
	}
	for _, e := range r.Errors {
		rep.SkippedEntries = append(rep.SkippedEntries, e.Error())
	}
	return rep
}

// NewDependencyReport builds a one-way report when reverse is nil
func NewDependencyReport(forward, reverse *model.AnalysisResult, sampleCalls int) *DependencyReport {
	if reverse == nil {
		return &DependencyReport{Result: NewAnalysisReport(forward, sampleCalls)}
	}
	bi := model.BidirectionalResult{Forward: forward, Reverse: reverse}
	return &DependencyReport{
		Direction1: NewAnalysisReport(forward, sampleCalls),
		Direction2: NewAnalysisReport(reverse, sampleCalls),
		Summary:    bi.Summary(),
		Cycle:      bi.HasCycle(),
	}
}

func newMetadataReport(m model.JarMetadata) MetadataReport {
	return MetadataReport{
		BuildJdk:  orUnknown(m.BuildJDK),
		CreatedBy: orUnknown(m.CreatedBy),
		BuiltBy:   m.BuiltBy,
		Timestamp: m.Timestamp,
		MainClass: m.MainClass,
	}
}

func NewDiffReport(r *model.DiffResult) *DiffReport {
	rep := &DiffReport{
		Jar1:               r.FirstID,
		Jar2:               r.SecondID,
		AnalysisTimeMs:     r.Elapsed.Milliseconds(),
		Jar1Metadata:       newMetadataReport(r.FirstMetadata),
		Jar2Metadata:       newMetadataReport(r.SecondMetadata),
		Jar1ClassCount:     r.FirstCount,
		Jar2ClassCount:     r.SecondCount,
		IdenticalCount:     r.IdenticalCount(),
		DifferentCount:     r.DifferentCount(),
		OnlyInJar1:         r.OnlyInFirstCount(),
		OnlyInJar2:         r.OnlyInSecondCount(),
		AreIdentical:       r.AreIdentical(),
		JdkMismatchWarning: r.HasJdkMismatch(),
		Recommendation:     r.Recommendation(),
		Differences:        []DifferenceEntry{},
		Warnings:           r.Warnings,
		Failed:             r.Failed,
	}
	for _, rc := range r.RankedCauses() {
		rep.Causes = append(rep.Causes, CauseCount{Cause: rc.Cause.String(), Count: rc.Count})
	}
	for _, d := range r.Differences {
		rep.Differences = append(rep.Differences, DifferenceEntry{
			Class:   d.ClassName,
			Kind:    d.Kind.String(),
			Reason:  d.Reason,
			Details: d.Details,
		})
	}
	return rep
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
