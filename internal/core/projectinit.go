package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// WorkspaceInitializer prepares a Pulse data directory.
type WorkspaceInitializer interface {
	Init(basePath string) (*InitResult, error)
}

type workspaceInitializer struct {
	defaults *models.Config
}

// NewWorkspaceInitializer creates a WorkspaceInitializer that writes the
// given defaults into new config files. A nil cfg uses DefaultConfig.
func NewWorkspaceInitializer(cfg *models.Config) WorkspaceInitializer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &workspaceInitializer{defaults: cfg}
}

// Init creates the data directory, a commented .pulseconfig.yaml and an
// .env.example. Existing files are skipped and not overwritten.
func (wi *workspaceInitializer) Init(basePath string) (*InitResult, error) {
	result := &InitResult{}

	created, err := ensureDir(basePath)
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: creating %s: %w", basePath, err)
	}
	if created {
		result.Created = append(result.Created, basePath)
	}

	files := []struct {
		name string
		tmpl string
	}{
		{ConfigFileName + ".yaml", configTemplate},
		{".env.example", envTemplate},
	}
	for _, f := range files {
		tmpl := f.tmpl
		if err := writeFileIfNotExists(filepath.Join(basePath, f.name), func() ([]byte, error) {
			return renderTemplate(f.name, tmpl, wi.defaults)
		}, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// ensureDir creates a directory if it does not exist. Returns true if created.
func ensureDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileIfNotExists writes content from contentFn if the file does not exist.
// It records created/skipped in the result.
func writeFileIfNotExists(path string, contentFn func() ([]byte, error), result *InitResult) error {
	if _, err := os.Stat(path); err == nil {
		result.Skipped = append(result.Skipped, path)
		return nil
	}
	content, err := contentFn()
	if err != nil {
		return fmt.Errorf("initializing workspace: generating content for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("initializing workspace: writing %s: %w", path, err)
	}
	result.Created = append(result.Created, path)
	return nil
}

func renderTemplate(name, content string, data any) ([]byte, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

const configTemplate = `# Pulse configuration. Every key can be overridden with a PULSE_ environment
# variable, e.g. PULSE_DEBT_DAILY_TARGET_MINUTES=420.

patterns:
  # Gaps longer than this split activity into separate sessions.
  idle_threshold: {{.Patterns.IdleThreshold}}
  sequence_length: {{.Patterns.SequenceLength}}
  half_life: {{.Patterns.HalfLife}}
  min_support: {{.Patterns.MinSupport}}
  window: {{.Patterns.Window}}
  rebuild_interval: {{.Patterns.RebuildInterval}}

suggestions:
  max_count: {{.Suggestions.MaxCount}}
  recency_boost: {{.Suggestions.RecencyBoost}}
  default_completion_minutes: {{.Suggestions.DefaultCompletionMinutes}}

compensation:
  end_of_day_hour: {{.Compensation.EndOfDayHour}}
  energy_threshold: {{.Compensation.EnergyThreshold}}
  max_daily_minutes: {{.Compensation.MaxDailyMinutes}}

preferences:
{{- if .Preferences.MorningPersonSet}}
  morning_person: {{.Preferences.MorningPerson}}
{{- else}}
  # Leave unset to infer from the energy curve.
  # morning_person: true
{{- end}}
  max_extend_minutes: {{.Preferences.MaxExtendMinutes}}
  # Fill unset energy_curve hours from recent activity.
  infer: {{.InferPrefs}}
  # Expected energy per hour of day, 0 to 1. Missing hours default to 0.5.
  # energy_curve:
  #   9: 0.8
  #   14: 0.4

debt:
  daily_target_minutes: {{.Debt.DailyTargetMinutes}}
  alert_minutes: {{.Debt.AlertMinutes}}

notifications:
  slack_webhook: "{{.Notifications.SlackWebhook}}"
  rebuild_failures: {{.Notifications.RebuildFailures}}
  stale_snapshot_hours: {{.Notifications.StaleSnapshotHours}}

retention:
  days: {{.RetentionDays}}

api:
  addr: "{{.APIAddr}}"

log:
  level: {{.LogLevel}}
`

const envTemplate = `# Copy to .env to override .pulseconfig.yaml without editing it.
# PULSE_LOG_LEVEL={{.LogLevel}}
# PULSE_API_ADDR={{.APIAddr}}
# PULSE_DEBT_DAILY_TARGET_MINUTES={{.Debt.DailyTargetMinutes}}
# PULSE_NOTIFICATIONS_SLACK_WEBHOOK=
`
