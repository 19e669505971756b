package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jarscope/internal/config"
	"github.com/mabhi256/jarscope/internal/tui"
	"github.com/mabhi256/jarscope/utils"
)

// validateArchives checks extensions and existence before any work starts
func validateArchives(paths []string) error {
	for _, p := range paths {
		if !utils.HasExtension(p, utils.ArchiveExtensions) {
			return fmt.Errorf("not a JVM archive: %s. Expected one of %v", p, utils.ArchiveExtensions)
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", p)
		}
	}
	return nil
}

// outputFormat prefers the flag over the configured format
func outputFormat(cmd *cobra.Command, flag string) (string, error) {
	format := cfg.Output.Format
	if cmd.Flags().Changed("output") {
		format = flag
	}
	if !slices.Contains(config.OutputFormats, format) {
		return "", fmt.Errorf("invalid output format: %s. Valid options: %v", format, config.OutputFormats)
	}
	return format, nil
}

func registerOutputFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "output", "o", "cli", "Output format: cli, json, yaml or tui")
	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// toTerminal reports whether the command writes to the process stdout attached to a terminal
func toTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && f == os.Stdout && utils.Terminal().Interactive
}

// withProgress shows a spinner while action runs, unless output is redirected
func withProgress(cmd *cobra.Command, title string, action func(context.Context) error) error {
	if !toTerminal(cmd) {
		return action(cmd.Context())
	}
	return tui.RunSpinner(cmd.Context(), title, action)
}
