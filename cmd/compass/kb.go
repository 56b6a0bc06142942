package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/compass-pm/compass/internal/knowledge"
)

var kbSearchLimit int

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base",
}

var kbLoadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Load documents from a YAML file into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKnowledgeStore()
		if err != nil {
			return err
		}
		defer kb.Close()

		n, err := knowledge.LoadFile(kb, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s loaded %d documents\n", color.GreenString("✓"), n)
		return nil
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across all collections",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKnowledgeStore()
		if err != nil {
			return err
		}
		defer kb.Close()

		query := args[0]
		for _, extra := range args[1:] {
			query += " " + extra
		}

		docs, err := kb.Search(query, nil, kbSearchLimit)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("no matches")
			return nil
		}

		for _, d := range docs {
			fmt.Printf("%s %s %s\n",
				color.CyanString(d.ID),
				color.HiBlackString("["+d.Collection+"]"),
				d.Title)
		}
		return nil
	},
}

var kbCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKnowledgeStore()
		if err != nil {
			return err
		}
		defer kb.Close()

		n, err := kb.Count()
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	kbSearchCmd.Flags().IntVarP(&kbSearchLimit, "limit", "n", 10, "Maximum results")

	kbCmd.AddCommand(kbLoadCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbCountCmd)
}
