// Package analyzer matches the calls made by one archive against the methods defined by another.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/jarscope/internal/extractor"
	"github.com/mabhi256/jarscope/internal/model"
)

type DefinitionExtractor interface {
	ExtractDefinitions(ctx context.Context, path string) (*extractor.DefinitionResult, error)
}

type CallExtractor interface {
	ExtractCalls(ctx context.Context, path string) (*extractor.CallResult, error)
}

type Matcher struct {
	defs     DefinitionExtractor
	calls    CallExtractor
	logger   *log.Logger
	parallel bool
}

// NewMatcher wires both extractors. With parallel set, independent extractions
// and the two directions of a bidirectional run are executed concurrently.
func NewMatcher(defs DefinitionExtractor, calls CallExtractor, logger *log.Logger, parallel bool) *Matcher {
	return &Matcher{defs: defs, calls: calls, logger: logger, parallel: parallel}
}

// run executes the tasks, concurrently when the matcher is parallel
func (m *Matcher) run(ctx context.Context, tasks ...func(context.Context) error) error {
	if !m.parallel {
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}

// Analyze reports which calls made by source land on methods defined in target
func (m *Matcher) Analyze(ctx context.Context, source, target string) (*model.AnalysisResult, error) {
	start := time.Now()

	var defs *extractor.DefinitionResult
	var calls *extractor.CallResult
	err := m.run(ctx,
		func(ctx context.Context) error {
			var err error
			if defs, err = m.defs.ExtractDefinitions(ctx, target); err != nil {
				return fmt.Errorf("extracting definitions from %s: %w", target, err)
			}
			return nil
		},
		func(ctx context.Context) error {
			var err error
			if calls, err = m.calls.ExtractCalls(ctx, source); err != nil {
				return fmt.Errorf("extracting calls from %s: %w", source, err)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	result := Match(defs.Definitions, calls.Calls)
	result.SourceID = source
	result.TargetID = target
	result.Reflective = calls.Reflective
	result.Errors = append(append(result.Errors, calls.Errors...), defs.Errors...)
	result.Elapsed = time.Since(start)

	m.logger.Info("analysis complete",
		"source", source, "target", target,
		"definitions", result.TargetDefinitionCount,
		"calls", result.SourceCallCount,
		"matching", result.MatchingCallCount(),
		"reflective", len(result.Reflective),
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return result, nil
}

// AnalyzeBidirectional runs Analyze in both directions. The runs share nothing.
func (m *Matcher) AnalyzeBidirectional(ctx context.Context, a, b string) (*model.BidirectionalResult, error) {
	res := &model.BidirectionalResult{}
	err := m.run(ctx,
		func(ctx context.Context) error {
			var err error
			res.Forward, err = m.Analyze(ctx, a, b)
			return err
		},
		func(ctx context.Context) error {
			var err error
			res.Reverse, err = m.Analyze(ctx, b, a)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Match keeps the calls whose target signature is among defs
func Match(defs model.SignatureSet, calls model.CallSet) *model.AnalysisResult {
	matching := make(model.CallSet)
	for call := range calls {
		if defs.Contains(call.Signature()) {
			matching.Add(call)
		}
	}
	return &model.AnalysisResult{
		TargetDefinitionCount: defs.Len(),
		SourceCallCount:       calls.Len(),
		Matching:              matching,
	}
}
