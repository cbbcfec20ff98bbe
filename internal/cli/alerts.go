package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts check for repeated pattern rebuild failures, a stale pattern
snapshot, and time debt above the configured threshold. With --notify the
alerts are also posted to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifier not initialized")
			}
			if err := Notifier.Notify(cmd.Context(), alerts); err != nil {
				return fmt.Errorf("sending alert notification: %w", err)
			}
			fmt.Fprintln(out, "Notification sent.")
		}

		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Send triggered alerts to the configured webhook")
	rootCmd.AddCommand(alertsCmd)
}
