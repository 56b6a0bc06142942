package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect stored sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStateStore()
		if err != nil {
			return err
		}
		defer db.Close()

		sessions, err := db.ListSessions()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}

		for _, s := range sessions {
			fmt.Printf("%s  problem=%s decision=%s  %s\n",
				color.CyanString(s.ID),
				s.ProblemState,
				s.DecisionState,
				color.HiBlackString(s.CreatedAt.Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's state and turn history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStateStore()
		if err != nil {
			return err
		}
		defer db.Close()

		sess, err := db.GetSession(args[0])
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session %q not found", args[0])
		}

		fmt.Printf("%s\n", color.CyanString(sess.ID))
		fmt.Printf("%s problem=%s decision=%s\n", color.HiBlackString("state:"), sess.ProblemState, sess.DecisionState)
		fmt.Printf("%s %s\n", color.HiBlackString("created:"), sess.CreatedAt.Format("2006-01-02 15:04"))

		turns, err := db.GetRecentTurns(sess.ID, 50)
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			return nil
		}

		fmt.Println()
		for _, t := range turns {
			names := make([]string, len(t.Sequence))
			for i, n := range t.Sequence {
				names[i] = string(n)
			}
			fmt.Printf("%2d. [%s] %s\n", t.TurnNumber, color.CyanString(string(t.Intent)), t.Query)
			fmt.Printf("    %s %s\n", color.HiBlackString("ran:"), strings.Join(names, " → "))
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}
