package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	decideAt     string
	decideFormat string
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Show suggestions and compensation options together",
	Long: `Print the combined decision: today's suggestions, the time debt and,
when time is owed, the compensation options.

--format selects text, json or yaml output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		at, err := parseAtFlag(decideAt)
		if err != nil {
			return err
		}
		decision, err := Planner.Decide(cmd.Context(), at)
		if err != nil {
			return fmt.Errorf("building decision: %w", err)
		}

		out := cmd.OutOrStdout()
		switch decideFormat {
		case "json":
			return writeJSON(out, decision)
		case "yaml":
			data, err := yaml.Marshal(decision)
			if err != nil {
				return fmt.Errorf("formatting decision as YAML: %w", err)
			}
			_, err = out.Write(data)
			return err
		case "text", "":
		default:
			return fmt.Errorf("unknown format %q (use text, json or yaml)", decideFormat)
		}

		fmt.Fprintf(out, "Decision at %s\n\n", decision.GeneratedAt.Format(time.RFC3339))
		if len(decision.Suggestions) == 0 {
			fmt.Fprintln(out, "No suggestions right now.")
		} else {
			fmt.Fprintln(out, "Suggestions:")
			for i, s := range decision.Suggestions {
				fmt.Fprintf(out, "  %d. [%s] %s (%.2f)\n", i+1, s.Priority, s.Text, s.Confidence)
			}
		}
		if decision.Debt != nil {
			fmt.Fprintln(out)
			printDebt(out, *decision.Debt)
			if decision.Debt.IsDebt() {
				printOptions(out, decision.Options)
			}
		}
		return nil
	},
}

func init() {
	decideCmd.Flags().StringVar(&decideAt, "at", "", "Evaluate at this RFC3339 time instead of now")
	decideCmd.Flags().StringVarP(&decideFormat, "format", "f", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(decideCmd)
}
