package models

import "time"

// TimeDebtEvent reports owed (positive AmountMinutes) or earned (negative)
// work time.
type TimeDebtEvent struct {
	AmountMinutes int       `yaml:"amount" json:"amount"`
	Reason        string    `yaml:"reason" json:"reason"`
	DetectedAt    time.Time `yaml:"detected_at" json:"detected_at"`
}

// IsDebt reports whether the event represents owed time.
func (e TimeDebtEvent) IsDebt() bool {
	return e.AmountMinutes > 0
}

// CompensationKind names a remediation strategy for time debt.
type CompensationKind string

const (
	CompensationExtendToday        CompensationKind = "EXTEND_TODAY"
	CompensationStartEarlyTomorrow CompensationKind = "START_EARLY_TOMORROW"
	CompensationDistribute         CompensationKind = "DISTRIBUTE"
	CompensationReduceBreak        CompensationKind = "REDUCE_BREAK"
)

// CompensationOption is a proposed, not-yet-applied remediation. Schedule
// lists the minutes for each occurrence; its sum always equals the debt.
// AmountPerOccurrence is the even share, with any integer-minute remainder
// carried by Schedule[0].
type CompensationOption struct {
	Kind                CompensationKind `yaml:"kind" json:"kind"`
	AmountPerOccurrence int              `yaml:"amount_per_occurrence" json:"amount_per_occurrence"`
	Occurrences         int              `yaml:"occurrences" json:"occurrences"`
	Schedule            []int            `yaml:"schedule" json:"schedule"`
	RankScore           float64          `yaml:"rank_score" json:"rank_score"`
	Description         string           `yaml:"description" json:"description"`
}

// TotalMinutes returns the minutes the option schedules across all occurrences.
func (o CompensationOption) TotalMinutes() int {
	total := 0
	for _, m := range o.Schedule {
		total += m
	}
	return total
}
