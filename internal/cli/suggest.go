package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

var (
	suggestJSON   bool
	suggestAt     string
	suggestAccept []int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest todos from the current patterns",
	Long: `Generate todo suggestions from the published patterns and today's
activity, ordered by priority and confidence.

Use --accept with the 1-based positions of suggestions to turn them into
todos, e.g. --accept 1,3.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		at, err := parseAtFlag(suggestAt)
		if err != nil {
			return err
		}

		suggestions, err := Planner.Suggest(cmd.Context(), at)
		if err != nil {
			return fmt.Errorf("generating suggestions: %w", err)
		}

		if len(suggestAccept) > 0 {
			return acceptSuggestions(cmd, suggestions, suggestAccept)
		}

		out := cmd.OutOrStdout()
		if suggestJSON {
			if suggestions == nil {
				suggestions = []models.Suggestion{}
			}
			return writeJSON(out, suggestions)
		}

		if len(suggestions) == 0 {
			if len(Planner.Snapshot().Patterns) == 0 {
				fmt.Fprintln(out, "No patterns yet. Import activity and run 'pulse rebuild'.")
				return nil
			}
			fmt.Fprintln(out, "No suggestions right now.")
			return nil
		}

		fmt.Fprintf(out, "%-3s %-8s %-10s %-14s %s\n", "#", "PRIORITY", "CONFIDENCE", "CATEGORY", "SUGGESTION")
		for i, s := range suggestions {
			fmt.Fprintf(out, "%-3d %-8s %-10.2f %-14s %s\n", i+1, s.Priority, s.Confidence, s.Category, s.Text)
		}
		return nil
	},
}

func acceptSuggestions(cmd *cobra.Command, suggestions []models.Suggestion, positions []int) error {
	if TodoStore == nil {
		return fmt.Errorf("todo store not initialized")
	}
	for _, pos := range positions {
		if pos < 1 || pos > len(suggestions) {
			return fmt.Errorf("suggestion %d out of range (1-%d)", pos, len(suggestions))
		}
	}

	now := nowFunc()
	accepted := make([]string, 0, len(positions))
	for _, pos := range positions {
		todo, err := TodoStore.Accept(suggestions[pos-1], now)
		if err != nil {
			return err
		}
		accepted = append(accepted, todo.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Accepted %s  %s\n", shortID(todo.ID), todo.Text)
	}
	if err := TodoStore.Save(); err != nil {
		return err
	}
	logEvent(core.EventTodosAccepted, map[string]any{"count": len(accepted), "ids": accepted})
	return nil
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "Output suggestions as JSON")
	suggestCmd.Flags().StringVar(&suggestAt, "at", "", "Evaluate at this RFC3339 time instead of now")
	suggestCmd.Flags().IntSliceVar(&suggestAccept, "accept", nil, "Accept the suggestions at these positions as todos")
	rootCmd.AddCommand(suggestCmd)
}
