package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the pattern index from activity history",
	Long: `Rebuild the pattern index from the activity records inside the
configured window and publish it to patterns.yaml.

A failed rebuild leaves the previous patterns in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Rebuilder == nil {
			return fmt.Errorf("rebuilder not initialized")
		}

		snap, err := Rebuilder.RebuildOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("rebuilding patterns: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d pattern(s) from %d record(s) at %s\n",
			len(snap.Patterns), snap.RecordCount, snap.BuiltAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
