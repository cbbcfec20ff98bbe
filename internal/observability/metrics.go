package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	Rebuilds              int            `json:"rebuilds"`
	RebuildFailures       int            `json:"rebuild_failures"`
	PatternCount          int            `json:"pattern_count"`
	SuggestionRuns        int            `json:"suggestion_runs"`
	SuggestionsGenerated  int            `json:"suggestions_generated"`
	CompensationsProposed int            `json:"compensations_proposed"`
	DebtByReason          map[string]int `json:"debt_by_reason"`
	TodosCompleted        int            `json:"todos_completed"`
	TodosAccepted         int            `json:"todos_accepted"`
	RecordsImported       int            `json:"records_imported"`
	EventCount            int            `json:"event_count"`
	LastRebuild           *time.Time     `json:"last_rebuild,omitempty"`
	OldestEvent           *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent           *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		DebtByReason: make(map[string]int),
	}

	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "patterns.rebuilt":
			m.Rebuilds++
			m.PatternCount = intField(event.Data, "patterns")
			m.LastRebuild = &t
		case "patterns.rebuild_failed":
			m.RebuildFailures++
		case "suggestions.generated":
			m.SuggestionRuns++
			m.SuggestionsGenerated += intField(event.Data, "count")
		case "compensation.proposed":
			m.CompensationsProposed++
			if reason, ok := event.Data["reason"].(string); ok && reason != "" {
				m.DebtByReason[reason]++
			}
		case "todos.completed":
			m.TodosCompleted += intField(event.Data, "count")
		case "todos.accepted":
			m.TodosAccepted += intField(event.Data, "count")
		case "activity.imported":
			m.RecordsImported += intField(event.Data, "inserted")
		}
	}

	return m, nil
}

// intField reads a numeric field from event data. Values decoded from JSON
// arrive as float64; values written in-process may still be ints.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
