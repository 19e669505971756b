package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mabhi256/jarscope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an MCP server on stdio",
	Long: `Serves the analyze_dependencies and compare_builds tools over the Model Context Protocol
on stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.New(cfg, logger, version)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
