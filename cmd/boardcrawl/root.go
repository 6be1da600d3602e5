package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boardcrawl",
		Short: "Concurrent crawler for the SOCOM 4 leaderboard",
		Long: `boardcrawl collects every player of the SOCOM 4 leaderboard into a CSV file.

The leaderboard is an ASP.NET postback application behind an age gate. Each
worker runs its own session, passes the gate, and requests the pages it
claims from a shared queue. Runs are recorded in a local history database
so that players missed by one crawl can be recovered from another.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

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
