package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// CompensationOptions tunes option eligibility.
type CompensationOptions struct {
	// EndOfDayHour is the latest hour an extended day may run to.
	EndOfDayHour int
	// EnergyThreshold is the energy level that must be exceeded to extend today.
	EnergyThreshold float64
	// MaxDailyMinutes caps each DISTRIBUTE occurrence.
	MaxDailyMinutes int
}

// DefaultCompensationOptions returns an 18:00 end of day, a 0.7 energy
// threshold and at most 60 minutes per distributed day.
func DefaultCompensationOptions() CompensationOptions {
	return CompensationOptions{
		EndOfDayHour:    18,
		EnergyThreshold: 0.7,
		MaxDailyMinutes: 60,
	}
}

// CompensationOptionsFromConfig maps configuration onto CompensationOptions.
func CompensationOptionsFromConfig(cfg models.CompensationConfig) CompensationOptions {
	opts := DefaultCompensationOptions()
	if cfg.EndOfDayHour > 0 && cfg.EndOfDayHour <= 24 {
		opts.EndOfDayHour = cfg.EndOfDayHour
	}
	if cfg.EnergyThreshold > 0 && cfg.EnergyThreshold < 1 {
		opts.EnergyThreshold = cfg.EnergyThreshold
	}
	if cfg.MaxDailyMinutes > 0 {
		opts.MaxDailyMinutes = cfg.MaxDailyMinutes
	}
	return opts
}

// MaxDebtMinutes is the largest debt the engine schedules: four weeks of
// minutes. Larger amounts are rejected at the outer surfaces.
const MaxDebtMinutes = 28 * 24 * 60

// ValidateDebtAmount rejects debts larger than MaxDebtMinutes.
func ValidateDebtAmount(minutes int) error {
	if minutes > MaxDebtMinutes {
		return fmt.Errorf("%w: %d minutes exceeds %d", ErrDebtTooLarge, minutes, MaxDebtMinutes)
	}
	return nil
}

// baseRankScores are the scores of each kind before renormalisation.
var baseRankScores = map[models.CompensationKind]float64{
	models.CompensationExtendToday:        1.0,
	models.CompensationStartEarlyTomorrow: 0.9,
	models.CompensationDistribute:         0.6,
	models.CompensationReduceBreak:        0.2,
}

// CompensationEngine proposes ways to make up time debt. It never applies an
// option; committing one is up to the caller.
type CompensationEngine struct {
	opts CompensationOptions
}

// NewCompensationEngine creates a CompensationEngine.
func NewCompensationEngine(opts CompensationOptions) *CompensationEngine {
	def := DefaultCompensationOptions()
	if opts.EndOfDayHour <= 0 {
		opts.EndOfDayHour = def.EndOfDayHour
	}
	if opts.EnergyThreshold <= 0 {
		opts.EnergyThreshold = def.EnergyThreshold
	}
	if opts.MaxDailyMinutes <= 0 {
		opts.MaxDailyMinutes = def.MaxDailyMinutes
	}
	return &CompensationEngine{opts: opts}
}

// Propose returns the eligible compensation options for event, best first.
// Credits (AmountMinutes <= 0) are informational and yield no options.
// Malformed preferences only disable the option they affect.
func (e *CompensationEngine) Propose(event models.TimeDebtEvent, prefs models.UserPreferences, currentHour int, energy float64) []models.CompensationOption {
	amount := event.AmountMinutes
	if amount <= 0 {
		return nil
	}

	var options []models.CompensationOption

	if e.canExtendToday(amount, prefs, currentHour, energy) {
		options = append(options, models.CompensationOption{
			Kind:                models.CompensationExtendToday,
			AmountPerOccurrence: amount,
			Occurrences:         1,
			Schedule:            []int{amount},
			Description:         fmt.Sprintf("Work %d more minutes today, finishing by %02d:00", amount, e.opts.EndOfDayHour),
		})
	}

	if prefs.MorningPerson {
		options = append(options, models.CompensationOption{
			Kind:                models.CompensationStartEarlyTomorrow,
			AmountPerOccurrence: amount,
			Occurrences:         1,
			Schedule:            []int{amount},
			Description:         fmt.Sprintf("Start %d minutes earlier tomorrow", amount),
		})
	}

	if amount > e.opts.MaxDailyMinutes && amount <= MaxDebtMinutes {
		options = append(options, distribute(amount, e.opts.MaxDailyMinutes))
	}

	options = append(options, models.CompensationOption{
		Kind:                models.CompensationReduceBreak,
		AmountPerOccurrence: amount,
		Occurrences:         1,
		Schedule:            []int{amount},
		Description:         fmt.Sprintf("Shorten the next break by %d minutes", amount),
	})

	rank(options)
	return options
}

func (e *CompensationEngine) canExtendToday(amount int, prefs models.UserPreferences, currentHour int, energy float64) bool {
	if prefs.MaxExtendMinutes < 0 {
		return false
	}
	if currentHour < 0 || currentHour > 23 {
		return false
	}
	if math.IsNaN(energy) || energy <= e.opts.EnergyThreshold {
		return false
	}
	if amount > prefs.MaxExtendMinutes {
		return false
	}
	return currentHour+ceilDiv(amount, 60) <= e.opts.EndOfDayHour
}

// distribute splits amount over ceil(amount/perDay) days. The integer-minute
// remainder goes to the first day so the schedule sums to amount exactly.
func distribute(amount, perDay int) models.CompensationOption {
	occurrences := ceilDiv(amount, perDay)
	share := amount / occurrences
	schedule := make([]int, occurrences)
	for i := range schedule {
		schedule[i] = share
	}
	schedule[0] += amount - share*occurrences

	return models.CompensationOption{
		Kind:                models.CompensationDistribute,
		AmountPerOccurrence: share,
		Occurrences:         occurrences,
		Schedule:            schedule,
		Description:         fmt.Sprintf("Add about %d minutes on each of the next %d days", share, occurrences),
	}
}

// ceilDiv returns ceil(a/b) for positive a and b without overflowing.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// rank assigns rank scores relative to the best eligible option and sorts
// options by score, highest first.
func rank(options []models.CompensationOption) {
	top := 0.0
	for _, o := range options {
		if s := baseRankScores[o.Kind]; s > top {
			top = s
		}
	}
	if top == 0 {
		return
	}
	for i := range options {
		options[i].RankScore = baseRankScores[options[i].Kind] / top
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].RankScore > options[j].RankScore
	})
}
