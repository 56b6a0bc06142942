package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/compass-pm/compass/internal/config"
	"github.com/compass-pm/compass/internal/workflow"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate workflow rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the active rule table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rs := workflow.DefaultRules()
		source := "built-in"
		if cfg.Rules.Path != "" {
			rs, err = workflow.LoadFile(cfg.Rules.Path)
			if err != nil {
				return err
			}
			source = cfg.Rules.Path
		}

		fmt.Printf("%s %s\n\n", color.HiBlackString("source:"), source)
		for _, r := range rs.Rules() {
			fmt.Printf("%s %s\n", color.CyanString(r.ID), r.Name)
			if r.Condition.ProblemState != "" {
				fmt.Printf("    when problem_state = %s\n", r.Condition.ProblemState)
			}
			if r.Condition.DecisionState != "" {
				fmt.Printf("    when decision_state = %s\n", r.Condition.DecisionState)
			}
			if r.Condition.Intent != "" {
				fmt.Printf("    when intent = %s\n", r.Condition.Intent)
			}
			if len(r.Condition.IntentIn) > 0 {
				fmt.Printf("    when intent in %v\n", r.Condition.IntentIn)
			}
			if r.Action.Prepend != "" {
				fmt.Printf("    then prepend %s\n", r.Action.Prepend)
			}
			if r.Action.Append != "" {
				fmt.Printf("    then append %s\n", r.Action.Append)
			}
		}
		return nil
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <file.yaml>",
	Short: "Validate a rule file without activating it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := workflow.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %d rules valid\n", color.GreenString("✓"), len(rs.Rules()))
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
}
