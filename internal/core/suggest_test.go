package core

import (
	"math"
	"testing"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       models.Priority
	}{
		{1.0, models.PriorityHigh},
		{0.75, models.PriorityHigh},
		{0.7499, models.PriorityMedium},
		{0.5, models.PriorityMedium},
		{0.49, models.PriorityLow},
		{0, models.PriorityLow},
	}
	for _, tt := range tests {
		if got := PriorityFor(tt.confidence); got != tt.want {
			t.Errorf("PriorityFor(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestGenerate_EmptyPatterns(t *testing.T) {
	e := NewSuggestionEngine(DefaultSuggestOptions())
	got := e.Generate(nil, nil, monday.Add(9*time.Hour))
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
}

func TestGenerate_TemporalMondayMorning(t *testing.T) {
	ix := NewPatternIndex(DefaultIndexOptions())
	patterns, err := ix.Rebuild(mondayCodeHistory(), 0)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	e := NewSuggestionEngine(DefaultSuggestOptions())
	now := monday.AddDate(0, 0, 35).Add(9*time.Hour + 5*time.Minute)
	got := e.Generate(patterns, nil, now)
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %+v", got)
	}
	s := got[0]
	if s.Category != models.CategoryCode {
		t.Errorf("Category = %s, want CODE", s.Category)
	}
	if s.Priority != models.PriorityHigh {
		t.Errorf("Priority = %s, want HIGH", s.Priority)
	}
	if s.Source.Kind != models.PatternTemporal || s.Source.Signature != "1-09-CODE" {
		t.Errorf("Source = %+v", s.Source)
	}
	if s.Confidence > 1 {
		t.Errorf("Confidence = %v exceeds 1", s.Confidence)
	}

	// Tuesday at the same hour matches nothing.
	if got := e.Generate(patterns, nil, now.AddDate(0, 0, 1)); len(got) != 0 {
		t.Errorf("expected no suggestions on Tuesday, got %+v", got)
	}
	// Monday at 10:00 matches nothing either.
	if got := e.Generate(patterns, nil, now.Add(time.Hour)); len(got) != 0 {
		t.Errorf("expected no suggestions at 10:00, got %+v", got)
	}
}

func TestGenerate_RecencyBoost(t *testing.T) {
	e := NewSuggestionEngine(DefaultSuggestOptions())
	now := monday.Add(9 * time.Hour)
	patterns := []models.Pattern{
		{Kind: models.PatternTemporal, Signature: "1-09-CODE", Category: models.CategoryCode, Weekday: time.Monday, Hour: 9, Support: 5, Confidence: 0.6, Recent: true},
		{Kind: models.PatternTemporal, Signature: "1-09-DOCUMENT", Category: models.CategoryDocument, Weekday: time.Monday, Hour: 9, Support: 5, Confidence: 0.6},
	}

	got := e.Generate(patterns, nil, now)
	if len(got) != 2 {
		t.Fatalf("expected two suggestions, got %d", len(got))
	}
	if got[0].Category != models.CategoryCode {
		t.Errorf("boosted suggestion should rank first, got %s", got[0].Category)
	}
	if math.Abs(got[0].Confidence-0.65) > 1e-9 {
		t.Errorf("boosted confidence = %v, want 0.65", got[0].Confidence)
	}
	if math.Abs(got[0].RecencyBoost-0.05) > 1e-9 {
		t.Errorf("RecencyBoost = %v, want 0.05", got[0].RecencyBoost)
	}
	if got[1].RecencyBoost != 0 {
		t.Errorf("unboosted RecencyBoost = %v, want 0", got[1].RecencyBoost)
	}
}

func TestGenerate_BoostNeverExceedsOne(t *testing.T) {
	e := NewSuggestionEngine(DefaultSuggestOptions())
	patterns := []models.Pattern{
		{Kind: models.PatternTemporal, Signature: "1-09-CODE", Category: models.CategoryCode, Weekday: time.Monday, Hour: 9, Support: 5, Confidence: 0.98, Recent: true},
	}
	got := e.Generate(patterns, nil, monday.Add(9*time.Hour))
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(got))
	}
	if got[0].Confidence != 1 {
		t.Errorf("Confidence = %v, want clipped to 1", got[0].Confidence)
	}
}

func TestGenerate_SequenceMatchesCurrentSession(t *testing.T) {
	e := NewSuggestionEngine(DefaultSuggestOptions())
	pattern := models.Pattern{
		Kind:       models.PatternSequence,
		Signature:  "MEETING>DOCUMENT>CODE",
		Category:   models.CategoryCode,
		Sequence:   []models.Category{models.CategoryMeeting, models.CategoryDocument, models.CategoryCode},
		Support:    4,
		Confidence: 0.8,
	}
	start := monday.Add(14 * time.Hour)
	today := []models.ActivityRecord{
		rec(start, models.CategoryMeeting, 300),
		rec(start.Add(5*time.Minute), models.CategoryMeeting, 300),
		rec(start.Add(10*time.Minute), models.CategoryDocument, 300),
	}

	got := e.Generate([]models.Pattern{pattern}, today, start.Add(12*time.Minute))
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %+v", got)
	}
	if got[0].Category != models.CategoryCode || got[0].Priority != models.PriorityHigh {
		t.Errorf("suggestion = %+v", got[0])
	}

	// After an idle gap the current session starts over and no longer ends
	// with the prefix.
	later := append(today, rec(start.Add(60*time.Minute), models.CategoryDocument, 300))
	if got := e.Generate([]models.Pattern{pattern}, later, start.Add(61*time.Minute)); len(got) != 0 {
		t.Errorf("expected no suggestion after idle gap, got %+v", got)
	}
}

func TestGenerate_IgnoresFutureRecords(t *testing.T) {
	e := NewSuggestionEngine(DefaultSuggestOptions())
	pattern := models.Pattern{
		Kind:       models.PatternSequence,
		Signature:  "MEETING>DOCUMENT>CODE",
		Category:   models.CategoryCode,
		Sequence:   []models.Category{models.CategoryMeeting, models.CategoryDocument, models.CategoryCode},
		Support:    4,
		Confidence: 0.8,
	}
	start := monday.Add(14 * time.Hour)
	today := []models.ActivityRecord{
		rec(start, models.CategoryMeeting, 300),
		rec(start.Add(5*time.Minute), models.CategoryDocument, 300),
		rec(start.Add(10*time.Minute), models.CategoryBrowser, 300),
	}
	got := e.Generate([]models.Pattern{pattern}, today, start.Add(6*time.Minute))
	if len(got) != 1 {
		t.Errorf("records after now should be ignored, got %+v", got)
	}
}

func TestGenerate_ContinuityOnProjectSeenToday(t *testing.T) {
	e := NewSuggestionEngine(DefaultSuggestOptions())
	pattern := models.Pattern{
		Kind:            models.PatternContinuity,
		Signature:       "auth-module",
		Category:        models.CategoryCode,
		Project:         "auth-module",
		Support:         4,
		Confidence:      0.75,
		Recent:          true,
		TypicalDuration: 120 * time.Minute,
	}
	friday := monday.AddDate(0, 0, 4).Add(9 * time.Hour)

	tests := []struct {
		name  string
		today []models.ActivityRecord
		want  int
	}{
		{"not touched today", nil, 0},
		{"touched for 50 minutes", projectRun(friday, models.CategoryCode, "auth-module", 5, 10*time.Minute), 1},
		{"typical duration reached", projectRun(friday, models.CategoryCode, "auth-module", 12, 10*time.Minute), 0},
		{"other project", projectRun(friday, models.CategoryCode, "billing", 5, 10*time.Minute), 0},
		{"huge tick counts as reached", func() []models.ActivityRecord {
			run := projectRun(friday, models.CategoryCode, "auth-module", 2, 10*time.Minute)
			run[1].DurationSeconds = math.MaxInt64
			return run
		}(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Generate([]models.Pattern{pattern}, tt.today, friday.Add(3*time.Hour))
			if len(got) != tt.want {
				t.Fatalf("got %d suggestions, want %d: %+v", len(got), tt.want, got)
			}
			if tt.want == 1 {
				if got[0].Text != "Continue work on auth-module" {
					t.Errorf("Text = %q", got[0].Text)
				}
				if got[0].Confidence != 0.75 || got[0].RecencyBoost != 0 {
					t.Errorf("continuity suggestions are not boosted: %+v", got[0])
				}
			}
		})
	}
}

func TestGenerate_DedupeSortAndCap(t *testing.T) {
	now := monday.Add(9 * time.Hour)
	temporal := func(cat models.Category, conf float64) models.Pattern {
		return models.Pattern{
			Kind: models.PatternTemporal, Signature: TemporalSignature(time.Monday, 9, cat),
			Category: cat, Weekday: time.Monday, Hour: 9, Support: 5, Confidence: conf,
		}
	}
	patterns := []models.Pattern{
		temporal(models.CategoryDocument, 0.3),
		temporal(models.CategoryCode, 0.9),
		temporal(models.CategoryCode, 0.4), // duplicate signature, lower confidence
		temporal(models.CategoryMeeting, 0.6),
		{Kind: models.PatternTemporal, Signature: "1-09-BROWSER", Category: models.CategoryBrowser, Weekday: time.Monday, Hour: 9, Support: 2, Confidence: 0.99},
	}

	e := NewSuggestionEngine(SuggestOptions{MaxCount: 2})
	got := e.Generate(patterns, nil, now)
	if len(got) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(got))
	}
	if got[0].Category != models.CategoryCode || got[0].Confidence != 0.9 {
		t.Errorf("first = %+v, want CODE at 0.9", got[0])
	}
	if got[1].Category != models.CategoryMeeting {
		t.Errorf("second = %+v, want MEETING", got[1])
	}

	uncapped := NewSuggestionEngine(SuggestOptions{MaxCount: 10}).Generate(patterns, nil, now)
	if len(uncapped) != 3 {
		t.Errorf("expected 3 suggestions after dedupe and support filter, got %d", len(uncapped))
	}
}

func TestSuggestOptionsFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Suggestions.MaxCount = 4
	cfg.Suggestions.RecencyBoost = 0.5
	opts := SuggestOptionsFromConfig(cfg)
	if opts.MaxCount != 4 {
		t.Errorf("MaxCount = %d, want 4", opts.MaxCount)
	}
	if opts.RecencyBoost != 0.05 {
		t.Errorf("out-of-range boost should keep the default, got %v", opts.RecencyBoost)
	}
	if got := SuggestOptionsFromConfig(nil); got.MaxCount != 10 {
		t.Errorf("nil config MaxCount = %d, want 10", got.MaxCount)
	}
}
