// Command image-edit runs the batch image editing pipeline as an MCP server,
// an HTTP service, or a one-shot command over files on disk.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/image-edit-mcp/internal/config"
	"github.com/ironsheep/image-edit-mcp/internal/observability"
	"github.com/ironsheep/image-edit-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Configuration and logger, loaded before every subcommand.
	cfg    *config.Config
	logger zerolog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "image-edit",
		Short: "Batch image editing over MCP, HTTP or the command line",
		Long: `image-edit resizes, color grades, cuts out backgrounds, restyles linework
and captions batches of images.

Run "image-edit mcp" from an MCP client, "image-edit serve" for the HTTP
form endpoint, or "image-edit edit" to process files directly.

Configuration comes from --config (or $IMAGE_EDIT_CONFIG) and IMAGE_EDIT_*
environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			// stdout belongs to the MCP transport and to command output.
			logger = observability.NewLogger(observability.LogConfig{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $IMAGE_EDIT_CONFIG)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console")

	root.AddCommand(newMCPCmd(), newServeCmd(), newEditCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "image-edit %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

func main() {
	server.Version = Version
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
