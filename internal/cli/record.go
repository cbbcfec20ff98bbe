package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/internal/storage"
)

var pruneDays int

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage stored activity records",
}

var recordImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import activity records from a JSON Lines file",
	Long: `Import activity records from a JSON Lines file, one record per line.
Use "-" to read from standard input.

Records must be in timestamp order and must not precede the newest
stored record. Nothing is stored when any record is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ActivityStore == nil {
			return fmt.Errorf("activity store not initialized")
		}

		var r io.Reader
		if args[0] == "-" {
			r = cmd.InOrStdin()
		} else {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}

		records, err := storage.DecodeActivityJSONL(r)
		if err != nil {
			return err
		}
		if err := core.ValidateRecords(records); err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}

		inserted, err := ActivityStore.Append(cmd.Context(), records)
		if err != nil {
			return fmt.Errorf("storing activity records: %w", err)
		}
		logEvent(core.EventActivityImported, map[string]any{
			"read":     len(records),
			"inserted": inserted,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d record(s).\n", inserted, len(records))
		return nil
	},
}

var recordPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete activity records older than the retention period",
	Long: `Delete activity records older than the retention period and drop
events of the same age from the event log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ActivityStore == nil {
			return fmt.Errorf("activity store not initialized")
		}
		days := pruneDays
		if !cmd.Flags().Changed("days") && Config != nil {
			days = Config.RetentionDays
		}
		if days <= 0 {
			return fmt.Errorf("retention must be a positive number of days, got %d", days)
		}

		before := nowFunc().AddDate(0, 0, -days)
		n, err := ActivityStore.Prune(cmd.Context(), before)
		if err != nil {
			return fmt.Errorf("pruning activity records: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Deleted %d record(s) older than %d day(s).\n", n, days)

		compacted := 0
		if EventLog != nil {
			compacted, err = EventLog.Compact(before)
			if err != nil {
				return fmt.Errorf("compacting event log: %w", err)
			}
			if compacted > 0 {
				fmt.Fprintf(out, "Removed %d old event(s) from the event log.\n", compacted)
			}
		}
		logEvent(core.EventActivityPruned, map[string]any{"deleted": n, "days": days, "events_removed": compacted})
		return nil
	},
}

func init() {
	recordPruneCmd.Flags().IntVar(&pruneDays, "days", 90, "Keep this many days of history (default: retention_days)")
	recordCmd.AddCommand(recordImportCmd, recordPruneCmd)
	rootCmd.AddCommand(recordCmd)
}
