package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// EntryError is a per-entry failure that was skipped rather than aborting the run
type EntryError struct {
	Entry string
	Err   error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Entry, e.Err)
}

func (e EntryError) Unwrap() error { return e.Err }

// AnalysisResult is the outcome of matching one archive's calls against another's definitions.
// Every matching call is one of the source calls and targets a definition in the target archive.
type AnalysisResult struct {
	SourceID              string
	TargetID              string
	TargetDefinitionCount int
	SourceCallCount       int
	Matching              CallSet
	Reflective            []ReflectiveCall
	Elapsed               time.Duration
	Errors                []EntryError
}

func (r *AnalysisResult) MatchingCallCount() int {
	return r.Matching.Len()
}

// Coverage is the percentage of target definitions reached by at least one matching call
func (r *AnalysisResult) Coverage() float64 {
	if r.TargetDefinitionCount == 0 {
		return 0
	}
	return float64(r.Matching.Signatures().Len()) * 100 / float64(r.TargetDefinitionCount)
}

// CallsByKind tallies matching calls by invoke kind, indexed by InvokeKind
func (r *AnalysisResult) CallsByKind() [invokeKindCount]int {
	var counts [invokeKindCount]int
	for c := range r.Matching {
		if c.kind >= 0 && c.kind < invokeKindCount {
			counts[c.kind]++
		}
	}
	return counts
}

func (r *AnalysisResult) ReflectionByKind() [reflectionKindCount]int {
	var counts [reflectionKindCount]int
	for _, rc := range r.Reflective {
		if rc.Kind.valid() {
			counts[rc.Kind]++
		}
	}
	return counts
}

func (r *AnalysisResult) HasReflectionWarnings() bool {
	return len(r.Reflective) > 0
}

// SampleCalls returns up to n matching calls in a stable order
func (r *AnalysisResult) SampleCalls(n int) []MethodCall {
	calls := r.Matching.Sorted()
	if n >= 0 && len(calls) > n {
		calls = calls[:n]
	}
	return calls
}

type BidirectionalResult struct {
	Forward *AnalysisResult
	Reverse *AnalysisResult
}

// Summary renders one line per direction using archive file names
func (b *BidirectionalResult) Summary() string {
	return fmt.Sprintf("%s → %s: %d calls\n%s → %s: %d calls",
		filepath.Base(b.Forward.SourceID), filepath.Base(b.Forward.TargetID), b.Forward.MatchingCallCount(),
		filepath.Base(b.Reverse.SourceID), filepath.Base(b.Reverse.TargetID), b.Reverse.MatchingCallCount(),
	)
}

// HasCycle reports whether each archive calls into the other
func (b *BidirectionalResult) HasCycle() bool {
	return b.Forward.MatchingCallCount() > 0 && b.Reverse.MatchingCallCount() > 0
}
