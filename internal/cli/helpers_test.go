package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

var fixedNow = time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC) // a Monday

type fakePlanner struct {
	suggestions []models.Suggestion
	debt        models.TimeDebtEvent
	options     []models.CompensationOption
	completions []string
	snapshot    *core.Snapshot
	err         error

	suggestAt       time.Time
	compensateCalls int
	gotEvent        models.TimeDebtEvent
	gotHour         int
	gotEnergy       *float64
}

func (f *fakePlanner) Suggest(_ context.Context, now time.Time) ([]models.Suggestion, error) {
	f.suggestAt = now
	return f.suggestions, f.err
}

func (f *fakePlanner) Debt(context.Context, time.Time) (models.TimeDebtEvent, error) {
	return f.debt, f.err
}

func (f *fakePlanner) Compensate(_ context.Context, event models.TimeDebtEvent, hour int, energy *float64) ([]models.CompensationOption, error) {
	f.compensateCalls++
	f.gotEvent = event
	f.gotHour = hour
	f.gotEnergy = energy
	return f.options, f.err
}

func (f *fakePlanner) DetectCompletions(context.Context, time.Time) ([]string, error) {
	return f.completions, f.err
}

func (f *fakePlanner) Decide(_ context.Context, now time.Time) (*models.Decision, error) {
	if f.err != nil {
		return nil, f.err
	}
	debt := f.debt
	d := &models.Decision{GeneratedAt: now, Suggestions: f.suggestions, Debt: &debt}
	if debt.IsDebt() {
		d.Options = f.options
	}
	return d, nil
}

func (f *fakePlanner) Snapshot() *core.Snapshot {
	if f.snapshot == nil {
		return &core.Snapshot{}
	}
	return f.snapshot
}

type recordedEvent struct {
	eventType string
	data      map[string]any
}

type recordingEvents struct {
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.events = append(r.events, recordedEvent{eventType: eventType, data: data})
	return nil
}

func (r *recordingEvents) ofType(eventType string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// isolateGlobals resets the package-level services and the fixed clock for
// one test and restores them afterwards.
func isolateGlobals(t *testing.T) {
	t.Helper()
	origBase, origCfg, origLogger := BasePath, Config, Logger
	origPlanner, origRebuilder := Planner, Rebuilder
	origActivity, origTodos, origEvents := ActivityStore, TodoStore, Events
	origEventLog, origAlerts, origMetrics, origNotifier := EventLog, AlertEngine, MetricsCalc, Notifier
	origInit, origNow := WorkspaceInit, nowFunc

	BasePath, Config, Logger = "", nil, nil
	Planner, Rebuilder = nil, nil
	ActivityStore, TodoStore, Events = nil, nil, nil
	EventLog, AlertEngine, MetricsCalc, Notifier = nil, nil, nil, nil
	WorkspaceInit = nil
	nowFunc = func() time.Time { return fixedNow }

	t.Cleanup(func() {
		BasePath, Config, Logger = origBase, origCfg, origLogger
		Planner, Rebuilder = origPlanner, origRebuilder
		ActivityStore, TodoStore, Events = origActivity, origTodos, origEvents
		EventLog, AlertEngine, MetricsCalc, Notifier = origEventLog, origAlerts, origMetrics, origNotifier
		WorkspaceInit, nowFunc = origInit, origNow
	})
}

// runCmd invokes cmd's RunE with args after applying flags, capturing
// output. Flags are restored to their defaults afterwards.
func runCmd(t *testing.T, cmd *cobra.Command, flags map[string]string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(cmd) })

	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("setting --%s=%s: %v", name, value, err)
		}
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(context.Background())
	defer func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	}()

	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}
