package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var routeJSON bool

var routeCmd = &cobra.Command{
	Use:   "route [query]",
	Short: "Classify and sequence a query without running the specialists",
	Long: `Route runs classification and workflow enforcement only. No
specialist executes and no model call is made beyond the classifier,
so this is the fast way to see how a query would be handled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		res, err := a.router.Route(context.Background(), query, sessionID)
		if err != nil {
			return err
		}

		if routeJSON {
			return printJSON(res)
		}
		printResult(res, false)
		return nil
	},
}

func init() {
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the raw result as JSON")
}
