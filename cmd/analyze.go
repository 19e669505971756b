package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jarscope/internal/analyzer"
	"github.com/mabhi256/jarscope/internal/extractor"
	"github.com/mabhi256/jarscope/internal/graphstore"
	"github.com/mabhi256/jarscope/internal/model"
	"github.com/mabhi256/jarscope/internal/report"
	"github.com/mabhi256/jarscope/internal/tui"
	"github.com/mabhi256/jarscope/utils"
)

var (
	analyzeOutput string
	analyzeOneWay bool
	analyzeNeo4j  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <source.jar> <target.jar>",
	Short: "Find calls from one archive into another",
	Long: `Finds every method call in the source archive whose target is defined in the target
archive, and lists reflection sites that may hide further calls. Both directions are
analysed unless --one-way is given.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: utils.CompleteArchives(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := outputFormat(cmd, analyzeOutput); err != nil {
			return err
		}
		return validateArchives(args)
	},
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := outputFormat(cmd, analyzeOutput)
	if err != nil {
		return err
	}
	source, target := args[0], args[1]
	bidirectional := cfg.Analysis.Bidirectional && !analyzeOneWay

	ex := extractor.New(logger, extractor.Options{SkipInnerClasses: cfg.Analysis.SkipInnerClasses})
	matcher := analyzer.NewMatcher(ex, ex, logger, cfg.Analysis.Parallel)

	var forward, reverse *model.AnalysisResult
	title := fmt.Sprintf("Analyzing %s → %s", filepath.Base(source), filepath.Base(target))
	err = withProgress(cmd, title, func(ctx context.Context) error {
		if !bidirectional {
			res, err := matcher.Analyze(ctx, source, target)
			forward = res
			return err
		}
		res, err := matcher.AnalyzeBidirectional(ctx, source, target)
		if err != nil {
			return err
		}
		forward, reverse = res.Forward, res.Reverse
		return nil
	})
	if err != nil {
		return err
	}

	if analyzeNeo4j {
		if err := exportGraph(ctx, forward, reverse); err != nil {
			return err
		}
	}

	if format == "tui" {
		return tui.StartAnalysisTUI(forward, reverse, cfg.Output.SampleCalls)
	}
	return report.WriteDependencies(cmd.OutOrStdout(),
		report.Options{Format: format, SampleCalls: cfg.Output.SampleCalls}, forward, reverse)
}

func exportGraph(ctx context.Context, results ...*model.AnalysisResult) error {
	exporter, err := graphstore.Connect(ctx, cfg.Neo4j, logger)
	if err != nil {
		return err
	}
	defer exporter.Close(ctx)

	if err := exporter.CreateIndexes(ctx); err != nil {
		return err
	}
	var nonNil []*model.AnalysisResult
	for _, r := range results {
		if r != nil {
			nonNil = append(nonNil, r)
		}
	}
	return exporter.Export(ctx, nonNil...)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	registerOutputFlag(analyzeCmd, &analyzeOutput)
	analyzeCmd.Flags().BoolVar(&analyzeOneWay, "one-way", false, "Only analyse calls from source into target")
	analyzeCmd.Flags().BoolVar(&analyzeNeo4j, "neo4j", false, "Export the matched call graph to Neo4j (see neo4j config section)")
}
