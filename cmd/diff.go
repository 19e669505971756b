package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jarscope/internal/builddiff"
	"github.com/mabhi256/jarscope/internal/model"
	"github.com/mabhi256/jarscope/internal/report"
	"github.com/mabhi256/jarscope/internal/tui"
	"github.com/mabhi256/jarscope/utils"
)

var (
	diffOutput     string
	diffFailOnDiff bool
	diffHash       string
)

var diffCmd = &cobra.Command{
	Use:   "diff <first.jar> <second.jar>",
	Short: "Explain why two builds of the same archive differ",
	Long: `Hashes every class in both archives, lists classes that exist on one side only or
whose bytecode differs, and explains each difference (JDK target, debug info, member
counts). Exits with status 2 under --fail-on-diff when the builds are not identical.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: utils.CompleteArchives(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := outputFormat(cmd, diffOutput); err != nil {
			return err
		}
		return validateArchives(args)
	},
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd, diffOutput)
	if err != nil {
		return err
	}

	hash := cfg.Diff.Hash
	if cmd.Flags().Changed("hash") {
		hash = diffHash
	}
	engine, err := builddiff.New(logger, builddiff.Options{
		Hash:       hash,
		Parallel:   cfg.Diff.Parallel,
		HashLength: cfg.Output.HashLength,
	})
	if err != nil {
		return err
	}

	var res *model.DiffResult
	title := fmt.Sprintf("Comparing %s and %s", filepath.Base(args[0]), filepath.Base(args[1]))
	err = withProgress(cmd, title, func(ctx context.Context) error {
		r, err := engine.Compare(ctx, args[0], args[1])
		res = r
		return err
	})
	if err != nil {
		// the degraded result still explains which archive could not be read
		if res != nil && format != "tui" {
			if werr := report.WriteDiff(cmd.OutOrStdout(), report.Options{Format: format}, res); werr != nil {
				logger.Error("writing report", "err", werr)
			}
		}
		return err
	}

	if format == "tui" {
		err = tui.StartDiffTUI(res)
	} else {
		err = report.WriteDiff(cmd.OutOrStdout(), report.Options{Format: format}, res)
	}
	if err != nil {
		return err
	}

	if diffFailOnDiff && !res.AreIdentical() {
		return errBuildsDiffer
	}
	return nil
}

func init() {
	rootCmd.AddCommand(diffCmd)

	registerOutputFlag(diffCmd, &diffOutput)
	diffCmd.Flags().BoolVar(&diffFailOnDiff, "fail-on-diff", false, "Exit with status 2 when the builds differ")
	diffCmd.Flags().StringVar(&diffHash, "hash", "sha256", "Class digest: sha256 or blake3")
}
