package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pgnscraper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pgnscraper",
		Short: "Download chess game collections linked from web pages",
		Long: `pgnscraper fetches seed pages, finds links to .pgn, .zip and other chess
database files (including links inside frames) and downloads them in parallel.

Files are saved as <output>/<host>/<file name>. Links that still fail after
all retries are listed in <output>/failed_urls at the end of the run.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
