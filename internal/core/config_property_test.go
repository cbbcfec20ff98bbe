package core

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// Any config file written with in-range values loads back unchanged and
// passes validation.
func TestProperty_ConfigRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxCount := rapid.IntRange(1, 50).Draw(rt, "maxCount")
		seqLen := rapid.IntRange(2, 6).Draw(rt, "seqLen")
		idleMin := rapid.IntRange(1, 120).Draw(rt, "idleMin")
		endHour := rapid.IntRange(1, 24).Draw(rt, "endHour")
		target := rapid.IntRange(0, 720).Draw(rt, "target")
		morning := rapid.Bool().Draw(rt, "morning")

		dir := t.TempDir()
		writeFile(t, dir, ".pulseconfig.yaml", fmt.Sprintf(`
patterns:
  idle_threshold: %dm
  sequence_length: %d
suggestions:
  max_count: %d
compensation:
  end_of_day_hour: %d
preferences:
  morning_person: %t
debt:
  daily_target_minutes: %d
`, idleMin, seqLen, maxCount, endHour, morning, target))

		cm := NewConfigurationManager(dir)
		cfg, err := cm.LoadConfig()
		if err != nil {
			rt.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Suggestions.MaxCount != maxCount {
			rt.Fatalf("MaxCount = %d, want %d", cfg.Suggestions.MaxCount, maxCount)
		}
		if cfg.Patterns.SequenceLength != seqLen {
			rt.Fatalf("SequenceLength = %d, want %d", cfg.Patterns.SequenceLength, seqLen)
		}
		if int(cfg.Patterns.IdleThreshold.Minutes()) != idleMin {
			rt.Fatalf("IdleThreshold = %s, want %dm", cfg.Patterns.IdleThreshold, idleMin)
		}
		if cfg.Compensation.EndOfDayHour != endHour {
			rt.Fatalf("EndOfDayHour = %d, want %d", cfg.Compensation.EndOfDayHour, endHour)
		}
		if cfg.Preferences.MorningPerson != morning {
			rt.Fatalf("MorningPerson = %t, want %t", cfg.Preferences.MorningPerson, morning)
		}
		if cfg.Debt.DailyTargetMinutes != target {
			rt.Fatalf("DailyTargetMinutes = %d, want %d", cfg.Debt.DailyTargetMinutes, target)
		}
		if err := cm.ValidateConfig(cfg); err != nil {
			rt.Fatalf("valid config rejected: %v", err)
		}
	})
}
