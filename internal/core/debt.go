package core

import (
	"math"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// ProductiveScoreThreshold is the productivity score from which a record
// counts toward the daily target.
const ProductiveScoreThreshold = 0.5

// Debt reasons attached to calculated events.
const (
	ReasonDailyShortfall = "daily_target_shortfall"
	ReasonDailySurplus   = "daily_target_surplus"
)

// ProductiveMinutes sums the productive time in records: non-break records
// scoring at least ProductiveScoreThreshold. Sessions are split at idle so
// idle gaps are not counted.
func ProductiveMinutes(records []models.ActivityRecord, idle time.Duration) int {
	var secs int64
	for _, s := range partitionSessions(records, idle) {
		for i, r := range s.records {
			if r.Category == models.CategoryBreak || r.ProductivityScore < ProductiveScoreThreshold {
				continue
			}
			secs += s.seconds[i]
		}
	}
	return int(secs / 60)
}

// CalculateDebt compares the productive time recorded on now's day against
// the daily target. A positive amount means time is owed.
func CalculateDebt(records []models.ActivityRecord, dailyTargetMinutes int, idle time.Duration, now time.Time) models.TimeDebtEvent {
	day := dayOf(now)
	var todays []models.ActivityRecord
	for _, r := range records {
		if dayOf(r.Timestamp.In(now.Location())) == day && !r.Timestamp.After(now) {
			todays = append(todays, r)
		}
	}

	amount := dailyTargetMinutes - ProductiveMinutes(todays, idle)
	reason := ReasonDailyShortfall
	if amount <= 0 {
		reason = ReasonDailySurplus
	}
	return models.TimeDebtEvent{
		AmountMinutes: amount,
		Reason:        reason,
		DetectedAt:    now,
	}
}

// InferEnergyCurve averages the productivity score per hour of day. Hours
// without records are left out.
func InferEnergyCurve(records []models.ActivityRecord) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range records {
		h := r.Timestamp.Hour()
		sums[h] += r.ProductivityScore
		counts[h]++
	}
	curve := make(map[int]float64, len(sums))
	for h, sum := range sums {
		curve[h] = math.Round(sum/float64(counts[h])*1000) / 1000
	}
	return curve
}

// InferMorningPerson reports whether average energy between 06:00 and 12:00
// beats the average between 12:00 and 18:00.
func InferMorningPerson(curve map[int]float64) bool {
	morning, mn := 0.0, 0
	afternoon, an := 0.0, 0
	for h, v := range curve {
		switch {
		case h >= 6 && h < 12:
			morning += v
			mn++
		case h >= 12 && h < 18:
			afternoon += v
			an++
		}
	}
	if mn == 0 {
		return false
	}
	if an == 0 {
		return true
	}
	return morning/float64(mn) > afternoon/float64(an)
}

// MergePreferences fills gaps in configured preferences with values inferred
// from history. Configured energy curve entries always win, as does an
// explicitly configured MorningPerson.
func MergePreferences(configured models.UserPreferences, records []models.ActivityRecord) models.UserPreferences {
	inferred := InferEnergyCurve(records)
	merged := configured
	merged.EnergyCurve = make(map[int]float64, len(inferred)+len(configured.EnergyCurve))
	for h, v := range inferred {
		merged.EnergyCurve[h] = v
	}
	for h, v := range configured.EnergyCurve {
		merged.EnergyCurve[h] = v
	}
	if !configured.MorningPerson && !configured.MorningPersonSet {
		merged.MorningPerson = InferMorningPerson(merged.EnergyCurve)
	}
	return merged
}
