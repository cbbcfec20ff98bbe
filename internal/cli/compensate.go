package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

var (
	debtJSON bool
	debtAt   string

	compMinutes int
	compReason  string
	compHour    int
	compEnergy  float64
	compJSON    bool
	compAt      string
)

var debtCmd = &cobra.Command{
	Use:   "debt",
	Short: "Show today's time debt against the daily target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		at, err := parseAtFlag(debtAt)
		if err != nil {
			return err
		}
		debt, err := Planner.Debt(cmd.Context(), at)
		if err != nil {
			return fmt.Errorf("calculating time debt: %w", err)
		}

		out := cmd.OutOrStdout()
		if debtJSON {
			return writeJSON(out, debt)
		}
		printDebt(out, debt)
		return nil
	},
}

func printDebt(w io.Writer, debt models.TimeDebtEvent) {
	switch {
	case debt.IsDebt():
		fmt.Fprintf(w, "Time debt: %s owed (%s)\n", formatMinutes(debt.AmountMinutes), debt.Reason)
	case debt.AmountMinutes < 0:
		fmt.Fprintf(w, "Time credit: %s ahead (%s)\n", formatMinutes(-debt.AmountMinutes), debt.Reason)
	default:
		fmt.Fprintln(w, "On target: no time owed today.")
	}
}

var compensateCmd = &cobra.Command{
	Use:   "compensate",
	Short: "Propose ways to make up owed time",
	Long: `Propose compensation options for time debt, best first.

Without --minutes the debt is today's shortfall against the daily target.
--hour and --energy default to the current hour and its energy level from
the configured energy curve.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		at, err := parseAtFlag(compAt)
		if err != nil {
			return err
		}

		var debt models.TimeDebtEvent
		if cmd.Flags().Changed("minutes") {
			if compMinutes <= 0 {
				return fmt.Errorf("--minutes must be positive, got %d", compMinutes)
			}
			if err := core.ValidateDebtAmount(compMinutes); err != nil {
				return fmt.Errorf("--minutes: %w", err)
			}
			reason := strings.TrimSpace(compReason)
			if reason == "" {
				reason = core.ReasonDailyShortfall
			}
			debt = models.TimeDebtEvent{AmountMinutes: compMinutes, Reason: reason, DetectedAt: at}
		} else {
			debt, err = Planner.Debt(cmd.Context(), at)
			if err != nil {
				return fmt.Errorf("calculating time debt: %w", err)
			}
		}

		hour := at.Hour()
		if cmd.Flags().Changed("hour") {
			if compHour < 0 || compHour > 23 {
				return fmt.Errorf("--hour must be between 0 and 23, got %d", compHour)
			}
			hour = compHour
		}
		var energy *float64
		if cmd.Flags().Changed("energy") {
			if compEnergy < 0 || compEnergy > 1 {
				return fmt.Errorf("--energy must be between 0 and 1, got %g", compEnergy)
			}
			e := compEnergy
			energy = &e
		}

		out := cmd.OutOrStdout()
		if !debt.IsDebt() {
			if compJSON {
				return writeJSON(out, map[string]any{"debt": debt, "options": []models.CompensationOption{}})
			}
			printDebt(out, debt)
			return nil
		}

		options, err := Planner.Compensate(cmd.Context(), debt, hour, energy)
		if err != nil {
			return fmt.Errorf("proposing compensation: %w", err)
		}
		if options == nil {
			options = []models.CompensationOption{}
		}

		if compJSON {
			return writeJSON(out, map[string]any{"debt": debt, "options": options})
		}

		printDebt(out, debt)
		printOptions(out, options)
		return nil
	},
}

func printOptions(w io.Writer, options []models.CompensationOption) {
	if len(options) == 0 {
		fmt.Fprintln(w, "\nNo compensation option fits the current constraints.")
		return
	}
	fmt.Fprintln(w, "\nOptions:")
	for i, o := range options {
		fmt.Fprintf(w, "  %d. %-22s score %.2f  %s\n", i+1, o.Kind, o.RankScore, o.Description)
		if o.Occurrences > 1 {
			parts := make([]string, len(o.Schedule))
			for j, m := range o.Schedule {
				parts[j] = formatMinutes(m)
			}
			fmt.Fprintf(w, "     schedule: %s\n", strings.Join(parts, ", "))
		}
	}
}

func init() {
	debtCmd.Flags().BoolVar(&debtJSON, "json", false, "Output the debt as JSON")
	debtCmd.Flags().StringVar(&debtAt, "at", "", "Evaluate at this RFC3339 time instead of now")

	compensateCmd.Flags().IntVar(&compMinutes, "minutes", 0, "Minutes owed (default: today's debt)")
	compensateCmd.Flags().StringVar(&compReason, "reason", "", "Reason recorded with --minutes")
	compensateCmd.Flags().IntVar(&compHour, "hour", 0, "Current hour of day, 0-23 (default: now)")
	compensateCmd.Flags().Float64Var(&compEnergy, "energy", 0, "Current energy level, 0-1 (default: energy curve)")
	compensateCmd.Flags().BoolVar(&compJSON, "json", false, "Output options as JSON")
	compensateCmd.Flags().StringVar(&compAt, "at", "", "Evaluate at this RFC3339 time instead of now")

	rootCmd.AddCommand(debtCmd)
	rootCmd.AddCommand(compensateCmd)
}
