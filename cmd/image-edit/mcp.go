package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-edit-mcp/internal/server"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdin/stdout",
		Long: `Serve the Model Context Protocol over stdin/stdout.

Configure this command in your MCP client. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.pipeline, a.codec, logger)
			return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
