package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	completeApply bool
	completeAt    string
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Detect todos that today's activity has finished",
	Long: `Compare open todos against today's activity and list those whose
pattern has been worked on for at least its typical duration.

Detection only reports candidates; pass --apply to mark them done.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		at, err := parseAtFlag(completeAt)
		if err != nil {
			return err
		}

		ids, err := Planner.DetectCompletions(cmd.Context(), at)
		if err != nil {
			return fmt.Errorf("detecting completions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No completed todos detected.")
			return nil
		}

		for _, id := range ids {
			text := ""
			if TodoStore != nil {
				if todo, err := TodoStore.Get(id); err == nil {
					text = todo.Text
				}
			}
			fmt.Fprintf(out, "  %s  %s\n", shortID(id), text)
		}

		if !completeApply {
			fmt.Fprintf(out, "\n%d todo(s) look done. Re-run with --apply to mark them.\n", len(ids))
			return nil
		}
		if TodoStore == nil {
			return fmt.Errorf("todo store not initialized")
		}
		marked, err := TodoStore.MarkCompleted(ids, at)
		if err != nil {
			return fmt.Errorf("marking todos completed: %w", err)
		}
		if err := TodoStore.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nMarked %d todo(s) completed.\n", marked)
		return nil
	},
}

func init() {
	completeCmd.Flags().BoolVar(&completeApply, "apply", false, "Mark detected todos as completed")
	completeCmd.Flags().StringVar(&completeAt, "at", "", "Evaluate at this RFC3339 time instead of now")
	rootCmd.AddCommand(completeCmd)
}
