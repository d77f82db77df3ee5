package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glaze",
		Short: "File-route SSR server and deploy tooling",
		Long: `Glaze serves file-routed pages through a streaming SSR pipeline.

Pages are matched against an ordered route table, their data loaded
concurrently, rendered server-side, and streamed out through a
single-pass HTML rewrite. The CLI wraps the pipeline in a production
server, a hot-reload development server, and an S3 deploy command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		devCmd(),
		deployCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
