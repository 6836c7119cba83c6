package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for reposcout.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reposcout",
		Short: "Search GitHub through rotating proxies",
		Long: `reposcout searches GitHub and extracts repository links, owners and
languages from the result page.

Before each search a working proxy is picked at random from the candidates
you provide. When none answers, reposcout falls back to a direct connection.
Searches can be saved to a local history database and compared over time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
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
