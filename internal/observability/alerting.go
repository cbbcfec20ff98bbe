package observability

import (
	"fmt"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	// RebuildFailures is the number of consecutive failed rebuilds that
	// raises an alert.
	RebuildFailures int `yaml:"rebuild_failures" json:"rebuild_failures"`
	// StaleHours is how old the last successful rebuild may get.
	StaleHours int `yaml:"stale_snapshot_hours" json:"stale_snapshot_hours"`
	// DebtMinutes is the debt at which a proposed compensation raises an alert.
	DebtMinutes int `yaml:"debt_minutes" json:"debt_minutes"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		RebuildFailures: 3,
		StaleHours:      48,
		DebtMinutes:     120,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by reading events and checking thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate reads events and checks all alert conditions, returning any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()
	var alerts []Alert

	failureAlerts, err := ae.checkRebuildFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking rebuild failures: %w", err)
	}
	alerts = append(alerts, failureAlerts...)

	staleAlerts, err := ae.checkStaleSnapshot(now)
	if err != nil {
		return nil, fmt.Errorf("checking snapshot age: %w", err)
	}
	alerts = append(alerts, staleAlerts...)

	debtAlerts, err := ae.checkDebt(now)
	if err != nil {
		return nil, fmt.Errorf("checking time debt: %w", err)
	}
	alerts = append(alerts, debtAlerts...)

	return alerts, nil
}

// rebuildEvents returns rebuild outcomes in log order.
func (ae *alertEngine) rebuildEvents() ([]Event, error) {
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range events {
		if e.Type == "patterns.rebuilt" || e.Type == "patterns.rebuild_failed" {
			out = append(out, e)
		}
	}
	return out, nil
}

// checkRebuildFailures alerts when the most recent rebuilds all failed.
func (ae *alertEngine) checkRebuildFailures(now time.Time) ([]Alert, error) {
	if ae.thresholds.RebuildFailures <= 0 {
		return nil, nil
	}
	events, err := ae.rebuildEvents()
	if err != nil {
		return nil, err
	}

	streak := 0
	lastErr := ""
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type != "patterns.rebuild_failed" {
			break
		}
		if streak == 0 {
			lastErr, _ = events[i].Data["error"].(string)
		}
		streak++
	}

	if streak < ae.thresholds.RebuildFailures {
		return nil, nil
	}
	msg := fmt.Sprintf("the last %d pattern rebuilds failed", streak)
	if lastErr != "" {
		msg += ": " + lastErr
	}
	return []Alert{{
		ID:          "rebuild-failures",
		Condition:   "rebuild_failing",
		Severity:    SeverityHigh,
		Message:     msg,
		TriggeredAt: now,
	}}, nil
}

// checkStaleSnapshot alerts when no rebuild has succeeded recently. An empty
// log means nothing has run yet and is not an alert.
func (ae *alertEngine) checkStaleSnapshot(now time.Time) ([]Alert, error) {
	if ae.thresholds.StaleHours <= 0 {
		return nil, nil
	}
	events, err := ae.rebuildEvents()
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	var last time.Time
	for _, e := range events {
		if e.Type == "patterns.rebuilt" && e.Time.After(last) {
			last = e.Time
		}
	}

	threshold := time.Duration(ae.thresholds.StaleHours) * time.Hour
	if !last.IsZero() && now.Sub(last) <= threshold {
		return nil, nil
	}

	msg := "patterns have never been rebuilt successfully"
	if !last.IsZero() {
		msg = fmt.Sprintf("patterns were last rebuilt more than %d hours ago", ae.thresholds.StaleHours)
	}
	return []Alert{{
		ID:          "stale-snapshot",
		Condition:   "snapshot_stale",
		Severity:    SeverityMedium,
		Message:     msg,
		TriggeredAt: now,
	}}, nil
}

// checkDebt alerts when today's latest proposed compensation covers a debt at
// or above the threshold.
func (ae *alertEngine) checkDebt(now time.Time) ([]Alert, error) {
	if ae.thresholds.DebtMinutes <= 0 {
		return nil, nil
	}
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	events, err := ae.eventLog.Read(EventFilter{Since: &startOfDay, Type: "compensation.proposed"})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	amount := intField(events[len(events)-1].Data, "amount")
	if amount < ae.thresholds.DebtMinutes {
		return nil, nil
	}
	return []Alert{{
		ID:          "time-debt",
		Condition:   "time_debt_high",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d minutes of work time are owed today, at or above the %d minute threshold", amount, ae.thresholds.DebtMinutes),
		TriggeredAt: now,
	}}, nil
}
