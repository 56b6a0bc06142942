package main

import (
	"os"

	"github.com/spf13/cobra"
)

// sessionID is the --session flag shared by the routing commands.
// Empty means "start a new session".
var sessionID string

var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "E-commerce PM copilot",
	Long: `Compass routes Product Manager queries to the right specialist.

A query is enriched with session state and knowledge-base context,
classified by intent, corrected by workflow rules (diagnose before
deciding, decide before shipping), and then executed by a sequence of
PM specialists: diagnosis, competitive-intel, strategy, alignment,
execution, and narration.

Sessions persist problem and decision state across queries, so the
workflow gates only fire until the groundwork is done.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "Session ID (created when empty)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
