package core

import (
	"context"
	"fmt"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// Planner is the entry point presentation layers (CLI, MCP, HTTP) use to
// obtain decisions. It reads the published pattern snapshot and delegates to
// the pure engines; it never mutates todo storage or calendars.
type Planner interface {
	Suggest(ctx context.Context, now time.Time) ([]models.Suggestion, error)
	Debt(ctx context.Context, now time.Time) (models.TimeDebtEvent, error)
	Compensate(ctx context.Context, event models.TimeDebtEvent, currentHour int, energy *float64) ([]models.CompensationOption, error)
	DetectCompletions(ctx context.Context, now time.Time) ([]string, error)
	Decide(ctx context.Context, now time.Time) (*models.Decision, error)
	Snapshot() *Snapshot
}

// PlannerDeps bundles the collaborators a planner needs.
type PlannerDeps struct {
	Snapshot     *PatternSnapshot
	Suggestions  *SuggestionEngine
	Compensation *CompensationEngine
	Activity     ActivitySource
	Todos        TodoSource
	Preferences  PreferenceSource
	Events       EventLogger

	DailyTargetMinutes int
	IdleThreshold      time.Duration
	// InferPreferences fills missing energy curve hours from the last
	// HistoryDays of activity.
	InferPreferences bool
	HistoryDays      int
}

type planner struct {
	deps PlannerDeps
}

// NewPlanner creates a Planner. Snapshot, Suggestions, Compensation and
// Activity are required; Todos, Preferences and Events may be nil.
func NewPlanner(deps PlannerDeps) Planner {
	if deps.Snapshot == nil {
		deps.Snapshot = NewPatternSnapshot()
	}
	if deps.Suggestions == nil {
		deps.Suggestions = NewSuggestionEngine(DefaultSuggestOptions())
	}
	if deps.Compensation == nil {
		deps.Compensation = NewCompensationEngine(DefaultCompensationOptions())
	}
	if deps.IdleThreshold <= 0 {
		deps.IdleThreshold = DefaultIndexOptions().IdleThreshold
	}
	if deps.HistoryDays <= 0 {
		deps.HistoryDays = 28
	}
	return &planner{deps: deps}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (p *planner) Snapshot() *Snapshot {
	return p.deps.Snapshot.Load()
}

func (p *planner) today(ctx context.Context, now time.Time) ([]models.ActivityRecord, error) {
	if p.deps.Activity == nil {
		return nil, nil
	}
	records, err := p.deps.Activity.FetchActivityRecords(ctx, startOfDay(now), now)
	if err != nil {
		return nil, fmt.Errorf("fetching today's activity: %w", err)
	}
	return records, nil
}

// Suggest generates today's suggestions from the current snapshot.
func (p *planner) Suggest(ctx context.Context, now time.Time) ([]models.Suggestion, error) {
	records, err := p.today(ctx, now)
	if err != nil {
		return nil, err
	}
	snap := p.deps.Snapshot.Load()
	suggestions := p.deps.Suggestions.Generate(snap.Patterns, records, now)
	p.logEvent(EventSuggestionsGenerated, map[string]any{
		"count":    len(suggestions),
		"patterns": len(snap.Patterns),
	})
	return suggestions, nil
}

// Debt calculates today's time debt against the daily target.
func (p *planner) Debt(ctx context.Context, now time.Time) (models.TimeDebtEvent, error) {
	records, err := p.today(ctx, now)
	if err != nil {
		return models.TimeDebtEvent{}, err
	}
	return CalculateDebt(records, p.deps.DailyTargetMinutes, p.deps.IdleThreshold, now), nil
}

func (p *planner) preferences(ctx context.Context, now time.Time) models.UserPreferences {
	var prefs models.UserPreferences
	if p.deps.Preferences != nil {
		if fetched, err := p.deps.Preferences.FetchUserPreferences(); err == nil {
			prefs = fetched
		}
	}
	if !p.deps.InferPreferences || p.deps.Activity == nil {
		return prefs
	}
	since := startOfDay(now).AddDate(0, 0, -p.deps.HistoryDays)
	history, err := p.deps.Activity.FetchActivityRecords(ctx, since, now)
	if err != nil || len(history) == 0 {
		return prefs
	}
	return MergePreferences(prefs, history)
}

// Compensate proposes options for event. When energy is nil the energy curve
// value for currentHour is used. Debts above MaxDebtMinutes fail with
// ErrDebtTooLarge.
func (p *planner) Compensate(ctx context.Context, event models.TimeDebtEvent, currentHour int, energy *float64) ([]models.CompensationOption, error) {
	if err := ValidateDebtAmount(event.AmountMinutes); err != nil {
		return nil, err
	}
	now := event.DetectedAt
	if now.IsZero() {
		now = time.Now()
	}
	prefs := p.preferences(ctx, now)

	level := prefs.EnergyAt(currentHour)
	if energy != nil {
		level = *energy
	}
	options := p.deps.Compensation.Propose(event, prefs, currentHour, level)
	p.logEvent(EventCompensationProposed, map[string]any{
		"amount":  event.AmountMinutes,
		"reason":  event.Reason,
		"options": len(options),
	})
	return options, nil
}

// DetectCompletions returns IDs of todos that today's activity suggests are
// finished. Marking them done is left to the todo store.
func (p *planner) DetectCompletions(ctx context.Context, now time.Time) ([]string, error) {
	if p.deps.Todos == nil {
		return nil, nil
	}
	todos, err := p.deps.Todos.FetchTodoList()
	if err != nil {
		return nil, fmt.Errorf("fetching todo list: %w", err)
	}
	records, err := p.today(ctx, now)
	if err != nil {
		return nil, err
	}
	snap := p.deps.Snapshot.Load()
	ids := p.deps.Suggestions.DetectCompletions(snap.Patterns, todos, records)
	if len(ids) > 0 {
		p.logEvent(EventTodosCompleted, map[string]any{"count": len(ids), "ids": ids})
	}
	return ids, nil
}

// Decide combines today's suggestions with compensation options for any
// outstanding time debt.
func (p *planner) Decide(ctx context.Context, now time.Time) (*models.Decision, error) {
	suggestions, err := p.Suggest(ctx, now)
	if err != nil {
		return nil, err
	}
	decision := &models.Decision{GeneratedAt: now, Suggestions: suggestions}

	if p.deps.DailyTargetMinutes <= 0 {
		return decision, nil
	}
	debt, err := p.Debt(ctx, now)
	if err != nil {
		return nil, err
	}
	decision.Debt = &debt
	if debt.IsDebt() {
		options, err := p.Compensate(ctx, debt, now.Hour(), nil)
		if err != nil {
			return nil, err
		}
		decision.Options = options
	}
	return decision, nil
}

func (p *planner) logEvent(eventType string, data map[string]any) {
	if p.deps.Events == nil {
		return
	}
	_ = p.deps.Events.LogEvent(eventType, data)
}
