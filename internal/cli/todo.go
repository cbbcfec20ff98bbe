package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

var (
	todoListAll     bool
	todoListJSON    bool
	todoAddCategory string
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage the todo list",
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open todos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TodoStore == nil {
			return fmt.Errorf("todo store not initialized")
		}
		todos := TodoStore.List(todoListAll)

		out := cmd.OutOrStdout()
		if todoListJSON {
			if todos == nil {
				todos = []models.Todo{}
			}
			return writeJSON(out, todos)
		}
		if len(todos) == 0 {
			fmt.Fprintln(out, "No todos.")
			return nil
		}
		for _, t := range todos {
			mark := " "
			if t.Done() {
				mark = "x"
			}
			category := string(t.Category)
			if category == "" {
				category = "-"
			}
			fmt.Fprintf(out, "[%s] %s  %-14s %s\n", mark, shortID(t.ID), category, t.Text)
		}
		return nil
	},
}

var todoAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TodoStore == nil {
			return fmt.Errorf("todo store not initialized")
		}
		category := models.Category(strings.ToUpper(strings.TrimSpace(todoAddCategory)))
		todo, err := TodoStore.Add(strings.Join(args, " "), category, nowFunc())
		if err != nil {
			return err
		}
		if err := TodoStore.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s  %s\n", shortID(todo.ID), todo.Text)
		return nil
	},
}

var todoAcceptCmd = &cobra.Command{
	Use:   "accept <position>...",
	Short: "Accept current suggestions as todos",
	Long: `Accept suggestions by their 1-based position in the output of
"pulse suggest" for the current moment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		positions := make([]int, 0, len(args))
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid position %q", a)
			}
			positions = append(positions, n)
		}
		suggestions, err := Planner.Suggest(cmd.Context(), nowFunc())
		if err != nil {
			return fmt.Errorf("generating suggestions: %w", err)
		}
		return acceptSuggestions(cmd, suggestions, positions)
	},
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Mark todos completed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TodoStore == nil {
			return fmt.Errorf("todo store not initialized")
		}
		for _, id := range args {
			if _, err := TodoStore.Get(id); err != nil {
				return err
			}
		}
		n, err := TodoStore.MarkCompleted(args, nowFunc())
		if err != nil {
			return err
		}
		if err := TodoStore.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %d todo(s) completed.\n", n)
		return nil
	},
}

var todoReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a completed todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TodoStore == nil {
			return fmt.Errorf("todo store not initialized")
		}
		if err := TodoStore.Reopen(args[0]); err != nil {
			return err
		}
		if err := TodoStore.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reopened %s\n", args[0])
		return nil
	},
}

func init() {
	todoListCmd.Flags().BoolVar(&todoListAll, "all", false, "Include completed todos")
	todoListCmd.Flags().BoolVar(&todoListJSON, "json", false, "Output todos as JSON")
	todoAddCmd.Flags().StringVarP(&todoAddCategory, "category", "c", "", "Category (CODE, DOCUMENT, MEETING, ...)")

	todoCmd.AddCommand(todoListCmd, todoAddCmd, todoAcceptCmd, todoDoneCmd, todoReopenCmd)
	rootCmd.AddCommand(todoCmd)
}
