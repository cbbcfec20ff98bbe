package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display pattern, suggestion and compensation metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include pattern rebuild counts, suggestion and todo counts, and
compensation proposals grouped by debt reason.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			return writeJSON(cmd.OutOrStdout(), metrics)
		}

		// Table format.
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-26s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-26s %d\n", "Records imported:", metrics.RecordsImported)
		fmt.Fprintf(out, "  %-26s %d\n", "Pattern rebuilds:", metrics.Rebuilds)
		fmt.Fprintf(out, "  %-26s %d\n", "Failed rebuilds:", metrics.RebuildFailures)
		fmt.Fprintf(out, "  %-26s %d\n", "Patterns (latest):", metrics.PatternCount)
		fmt.Fprintf(out, "  %-26s %d\n", "Suggestion runs:", metrics.SuggestionRuns)
		fmt.Fprintf(out, "  %-26s %d\n", "Suggestions generated:", metrics.SuggestionsGenerated)
		fmt.Fprintf(out, "  %-26s %d\n", "Todos accepted:", metrics.TodosAccepted)
		fmt.Fprintf(out, "  %-26s %d\n", "Todos completed:", metrics.TodosCompleted)
		fmt.Fprintf(out, "  %-26s %d\n", "Compensations proposed:", metrics.CompensationsProposed)

		if len(metrics.DebtByReason) > 0 {
			fmt.Fprintln(out, "\n  Compensations by reason:")
			reasons := make([]string, 0, len(metrics.DebtByReason))
			for reason := range metrics.DebtByReason {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)
			for _, reason := range reasons {
				fmt.Fprintf(out, "    %-24s %d\n", reason+":", metrics.DebtByReason[reason])
			}
		}

		if metrics.LastRebuild != nil {
			fmt.Fprintf(out, "\n  %-26s %s\n", "Last rebuild:", metrics.LastRebuild.Format(time.RFC3339))
		}
		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "  %-26s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-26s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := nowFunc().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
