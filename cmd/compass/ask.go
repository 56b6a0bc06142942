package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/compass-pm/compass/internal/router"
	"github.com/compass-pm/compass/pkg/models"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run a query through the full specialist pipeline",
	Long: `Ask routes the query, executes the enforced specialist sequence,
and persists the resulting session state.

Use --session to continue an existing session; otherwise a new one is
created and its ID printed for follow-up queries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		res, err := a.router.Run(context.Background(), query, sessionID)
		if err != nil {
			return err
		}

		if askJSON {
			return printJSON(res)
		}
		printResult(res, true)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the raw result as JSON")
}

func printJSON(res *router.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// printResult renders a routing result for the terminal. withOutputs
// controls whether executed agent outputs are shown.
func printResult(res *router.Result, withOutputs bool) {
	fmt.Printf("%s %s\n", color.HiBlackString("session:"), res.SessionID)
	fmt.Printf("%s %s (%.2f)\n", color.HiBlackString("intent:"), color.CyanString(string(res.Intent)), res.Confidence)

	if len(res.Sequence) == 0 {
		fmt.Printf("\n%s %s\n", color.YellowString("⚠"), res.Warning)
		return
	}

	names := make([]string, len(res.Sequence))
	for i, n := range res.Sequence {
		names[i] = string(n)
	}
	fmt.Printf("%s %s\n", color.HiBlackString("sequence:"), strings.Join(names, " → "))
	if len(res.RulesApplied) > 0 {
		fmt.Printf("%s %s\n", color.HiBlackString("rules:"), strings.Join(res.RulesApplied, ", "))
	}
	if res.Warning != "" {
		fmt.Printf("%s %s\n", color.YellowString("⚠"), res.Warning)
	}

	if !withOutputs {
		return
	}

	for _, out := range res.AgentOutputs {
		fmt.Println()
		switch out.Status {
		case models.StatusSuccess:
			fmt.Printf("%s %s\n", color.GreenString("▸"), color.New(color.Bold).Sprint(out.Agent))
			printPrimary(out.Primary)
		case models.StatusNeedsClarification:
			fmt.Printf("%s %s needs clarification\n", color.YellowString("▸"), color.New(color.Bold).Sprint(out.Agent))
		case models.StatusError:
			msg, _ := out.Primary["error"].(string)
			fmt.Printf("%s %s failed: %s\n", color.RedString("▸"), color.New(color.Bold).Sprint(out.Agent), msg)
		case models.StatusPending:
			fmt.Printf("%s %s pending\n", color.HiBlackString("▸"), out.Agent)
		}
	}

	if res.NeedsClarification {
		fmt.Printf("\n%s %s is asking:\n", color.YellowString("?"), res.ClarifyingAgent)
		for _, q := range res.ClarifyingQuestions {
			fmt.Printf("  - %s\n", q)
		}
		if len(res.PendingAgents) > 0 {
			pending := make([]string, len(res.PendingAgents))
			for i, n := range res.PendingAgents {
				pending[i] = string(n)
			}
			fmt.Printf("%s %s\n", color.HiBlackString("still pending:"), strings.Join(pending, ", "))
		}
		return
	}

	fmt.Printf("\n%s problem=%s decision=%s",
		color.HiBlackString("state:"), res.ProblemState, res.DecisionState)
	if res.Turn > 0 {
		fmt.Printf(" %s %d", color.HiBlackString("turn:"), res.Turn)
	}
	fmt.Println()
}

// printPrimary renders a specialist's structured output as indented
// key/value lines, leaving nested structures to JSON.
func printPrimary(primary map[string]any) {
	if raw, ok := primary["raw"].(string); ok {
		fmt.Printf("  %s\n", strings.ReplaceAll(strings.TrimSpace(raw), "\n", "\n  "))
		return
	}
	for _, key := range sortedKeys(primary) {
		switch key {
		case "confidence", "next_agent", "clarifying_questions", "context_used":
			continue
		}
		value := primary[key]
		switch v := value.(type) {
		case string:
			if v != "" {
				fmt.Printf("  %s: %s\n", color.HiBlackString(key), v)
			}
		default:
			data, err := json.Marshal(v)
			if err == nil && string(data) != "null" && string(data) != "[]" && string(data) != "{}" {
				fmt.Printf("  %s: %s\n", color.HiBlackString(key), data)
			}
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
