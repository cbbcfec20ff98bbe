package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
)

// WorkspaceInit is the WorkspaceInitializer used by the init command.
// Set during application wiring.
var WorkspaceInit core.WorkspaceInitializer

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a Pulse data directory",
	Long: `Create a Pulse data directory with a commented .pulseconfig.yaml holding
the default settings and an .env.example listing common overrides.

Safe to run on an existing directory: files that already exist are
skipped and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceInit == nil {
			return fmt.Errorf("workspace initializer not initialized")
		}

		basePath := BasePath
		if len(args) > 0 {
			basePath = args[0]
		}
		if basePath == "" {
			basePath = "."
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		result, err := WorkspaceInit.Init(absPath)
		if err != nil {
			return fmt.Errorf("initializing workspace: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(result.Created) > 0 {
			fmt.Fprintln(out, "Created:")
			for _, p := range result.Created {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintln(out, "Skipped (already exist):")
			for _, p := range result.Skipped {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}

		fmt.Fprintf(out, "\nPulse initialized at %s\n", absPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
