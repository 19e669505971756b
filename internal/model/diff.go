package model

import (
	"fmt"
	"sort"
	"time"
)

// JarMetadata holds manifest attributes that describe how an archive was built.
// Empty fields were absent from the manifest.
type JarMetadata struct {
	BuildJDK  string
	CreatedBy string
	BuiltBy   string
	Timestamp string
	MainClass string
}

type DiffKind int

const (
	OnlyInFirst DiffKind = iota
	OnlyInSecond
	Different
)

func (k DiffKind) String() string {
	switch k {
	case OnlyInFirst:
		return "ONLY_IN_FIRST"
	case OnlyInSecond:
		return "ONLY_IN_SECOND"
	case Different:
		return "DIFFERENT"
	default:
		return fmt.Sprintf("DiffKind(%d)", int(k))
	}
}

// Cause is one explanation for a differing class, declared in priority order
type Cause int

const (
	CauseVersion Cause = iota
	CauseMethodCount
	CauseFieldCount
	CauseLineNumbers
	CauseLocalVariables
	CauseSize
	CauseUnexplained
	causeCount
)

var Causes = [causeCount]Cause{
	CauseVersion, CauseMethodCount, CauseFieldCount, CauseLineNumbers,
	CauseLocalVariables, CauseSize, CauseUnexplained,
}

func (c Cause) String() string {
	switch c {
	case CauseVersion:
		return "bytecode version"
	case CauseMethodCount:
		return "method count"
	case CauseFieldCount:
		return "field count"
	case CauseLineNumbers:
		return "line number info"
	case CauseLocalVariables:
		return "local variable info"
	case CauseSize:
		return "byte length"
	case CauseUnexplained:
		return "unexplained"
	default:
		return fmt.Sprintf("Cause(%d)", int(c))
	}
}

type ClassDiff struct {
	ClassName string
	Kind      DiffKind
	Reason    string
	Causes    []Cause
	Details   string // empty unless Kind is Different
}

type DiffResult struct {
	FirstID        string
	SecondID       string
	FirstMetadata  JarMetadata
	SecondMetadata JarMetadata
	FirstCount     int
	SecondCount    int
	Differences    []ClassDiff // sorted by class name
	Elapsed        time.Duration
	Warnings       []string
	Failed         bool
}

// HasJdkMismatch is true only when both archives declare a build JDK and they differ
func (r *DiffResult) HasJdkMismatch() bool {
	a, b := r.FirstMetadata.BuildJDK, r.SecondMetadata.BuildJDK
	return a != "" && b != "" && a != b
}

func (r *DiffResult) count(kind DiffKind) int {
	n := 0
	for _, d := range r.Differences {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (r *DiffResult) DifferentCount() int    { return r.count(Different) }
func (r *DiffResult) OnlyInFirstCount() int  { return r.count(OnlyInFirst) }
func (r *DiffResult) OnlyInSecondCount() int { return r.count(OnlyInSecond) }

// IdenticalCount is the number of classes present in both archives with equal content
func (r *DiffResult) IdenticalCount() int {
	n := r.FirstCount - r.OnlyInFirstCount() - r.DifferentCount()
	if n < 0 {
		return 0
	}
	return n
}

func (r *DiffResult) AreIdentical() bool {
	return !r.Failed && len(r.Differences) == 0
}

// CauseBreakdown tallies causes across differing classes, indexed by Cause
func (r *DiffResult) CauseBreakdown() [causeCount]int {
	var counts [causeCount]int
	for _, d := range r.Differences {
		for _, c := range d.Causes {
			if c >= 0 && c < causeCount {
				counts[c]++
			}
		}
	}
	return counts
}

type RankedCause struct {
	Cause Cause
	Count int
}

// RankedCauses orders observed causes by frequency, ties broken by priority
func (r *DiffResult) RankedCauses() []RankedCause {
	counts := r.CauseBreakdown()
	var ranked []RankedCause
	for _, c := range Causes {
		if counts[c] > 0 {
			ranked = append(ranked, RankedCause{Cause: c, Count: counts[c]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	return ranked
}

const (
	recommendJdkMismatch = "JDK version mismatch detected (%s vs %s). Use the --release compiler flag " +
		"(not just -target) to ensure bytecode compatibility. See JEP 247: https://openjdk.org/jeps/247"
	recommendDiffer = "Builds differ. Common causes: timestamps, non-deterministic ordering, " +
		"debug info differences. Consider using reproducible build plugins."
	recommendIdentical = "Builds are identical. No action needed."
	recommendFailed    = "Unable to compare builds. Check the warnings for the archive that could not be read."
)

func (r *DiffResult) Recommendation() string {
	switch {
	case r.Failed:
		return recommendFailed
	case r.HasJdkMismatch():
		return fmt.Sprintf(recommendJdkMismatch, r.FirstMetadata.BuildJDK, r.SecondMetadata.BuildJDK)
	case len(r.Differences) > 0:
		if ranked := r.RankedCauses(); len(ranked) > 0 {
			return fmt.Sprintf("%s Most frequent cause: %s (%d classes).",
				recommendDiffer, ranked[0].Cause, ranked[0].Count)
		}
		return recommendDiffer
	default:
		return recommendIdentical
	}
}
