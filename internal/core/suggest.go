package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// SuggestOptions tunes suggestion generation.
type SuggestOptions struct {
	MaxCount                  int
	RecencyBoost              float64
	MinSupport                int
	IdleThreshold             time.Duration
	DefaultCompletionDuration time.Duration
}

// DefaultSuggestOptions returns a cap of 10, a recency boost of 0.05 and the
// index defaults for support and idle threshold.
func DefaultSuggestOptions() SuggestOptions {
	idx := DefaultIndexOptions()
	return SuggestOptions{
		MaxCount:                  10,
		RecencyBoost:              0.05,
		MinSupport:                idx.MinSupport,
		IdleThreshold:             idx.IdleThreshold,
		DefaultCompletionDuration: 30 * time.Minute,
	}
}

// SuggestOptionsFromConfig maps configuration onto SuggestOptions.
func SuggestOptionsFromConfig(cfg *models.Config) SuggestOptions {
	opts := DefaultSuggestOptions()
	if cfg == nil {
		return opts
	}
	if cfg.Suggestions.MaxCount > 0 {
		opts.MaxCount = cfg.Suggestions.MaxCount
	}
	if cfg.Suggestions.RecencyBoost > 0 && cfg.Suggestions.RecencyBoost <= 0.05 {
		opts.RecencyBoost = cfg.Suggestions.RecencyBoost
	}
	if cfg.Suggestions.DefaultCompletionMinutes > 0 {
		opts.DefaultCompletionDuration = time.Duration(cfg.Suggestions.DefaultCompletionMinutes) * time.Minute
	}
	if cfg.Patterns.MinSupport > 0 {
		opts.MinSupport = cfg.Patterns.MinSupport
	}
	if cfg.Patterns.IdleThreshold > 0 {
		opts.IdleThreshold = cfg.Patterns.IdleThreshold
	}
	return opts
}

// SuggestionEngine ranks today's todo suggestions from a pattern snapshot.
// It only reads its inputs and is safe for concurrent use.
type SuggestionEngine struct {
	opts SuggestOptions
}

// NewSuggestionEngine creates a SuggestionEngine.
func NewSuggestionEngine(opts SuggestOptions) *SuggestionEngine {
	def := DefaultSuggestOptions()
	if opts.MaxCount <= 0 {
		opts.MaxCount = def.MaxCount
	}
	if opts.RecencyBoost < 0 {
		opts.RecencyBoost = 0
	}
	if opts.MinSupport <= 0 {
		opts.MinSupport = def.MinSupport
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = def.IdleThreshold
	}
	if opts.DefaultCompletionDuration <= 0 {
		opts.DefaultCompletionDuration = def.DefaultCompletionDuration
	}
	return &SuggestionEngine{opts: opts}
}

// PriorityFor maps a confidence onto a priority: HIGH from 0.75, MEDIUM from
// 0.5, LOW below.
func PriorityFor(confidence float64) models.Priority {
	switch {
	case confidence >= 0.75:
		return models.PriorityHigh
	case confidence >= 0.5:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// Generate returns today's suggestions, best first. Missing patterns or
// records simply yield fewer (possibly zero) suggestions.
func (e *SuggestionEngine) Generate(patterns []models.Pattern, today []models.ActivityRecord, now time.Time) []models.Suggestion {
	if len(patterns) == 0 {
		return nil
	}

	today = recordsUntil(today, now)
	window := currentWindow(today, e.opts.IdleThreshold)
	projectSecs := projectSeconds(today, e.opts.IdleThreshold)

	var candidates []models.Suggestion
	for _, p := range patterns {
		if p.Support < e.opts.MinSupport {
			continue
		}
		switch p.Kind {
		case models.PatternTemporal:
			if p.Weekday != now.Weekday() || p.Hour != now.Hour() {
				continue
			}
			candidates = append(candidates, e.boosted(p, fmt.Sprintf(
				"Start %s work (usual %s %02d:00 routine)",
				categoryLabel(p.Category), p.Weekday, p.Hour,
			)))
		case models.PatternSequence:
			if !endsWith(window, p.Prefix()) {
				continue
			}
			candidates = append(candidates, e.boosted(p, fmt.Sprintf(
				"Switch to %s next (you usually follow %s with it)",
				categoryLabel(p.Category), SequenceSignature(p.Prefix()),
			)))
		case models.PatternContinuity:
			secs, touched := projectSecs[p.Project]
			if !touched {
				continue
			}
			// Compare in seconds; secs comes from an unvalidated source.
			if p.TypicalDuration > 0 && secs >= int64(p.TypicalDuration/time.Second) {
				continue
			}
			candidates = append(candidates, models.Suggestion{
				Text:       fmt.Sprintf("Continue work on %s", p.Project),
				Category:   p.Category,
				Confidence: clip01(p.Confidence),
				Source:     p.Ref(),
			})
		}
	}

	out := dedupeSuggestions(candidates)
	for i := range out {
		out[i].Priority = PriorityFor(out[i].Confidence)
	}
	sortSuggestions(out)
	if len(out) > e.opts.MaxCount {
		out = out[:e.opts.MaxCount]
	}
	return out
}

func (e *SuggestionEngine) boosted(p models.Pattern, text string) models.Suggestion {
	conf := clip01(p.Confidence)
	boost := 0.0
	if p.Recent && e.opts.RecencyBoost > 0 {
		boosted := clip01(conf + e.opts.RecencyBoost)
		boost = boosted - conf
		conf = boosted
	}
	return models.Suggestion{
		Text:         text,
		Category:     p.Category,
		Confidence:   conf,
		Source:       p.Ref(),
		RecencyBoost: boost,
	}
}

type suggestionKey struct {
	category  models.Category
	signature string
}

// dedupeSuggestions keeps the highest-confidence candidate per
// (category, signature).
func dedupeSuggestions(candidates []models.Suggestion) []models.Suggestion {
	best := make(map[suggestionKey]int)
	var out []models.Suggestion
	for _, c := range candidates {
		key := suggestionKey{category: c.Category, signature: c.Source.Signature}
		if idx, ok := best[key]; ok {
			if c.Confidence > out[idx].Confidence {
				out[idx] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	return out
}

// sortSuggestions orders by confidence, priority weight and recency boost,
// all descending, then by source signature and category ascending.
func sortSuggestions(s []models.Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i], s[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Priority.Weight() != b.Priority.Weight() {
			return a.Priority.Weight() > b.Priority.Weight()
		}
		if a.RecencyBoost != b.RecencyBoost {
			return a.RecencyBoost > b.RecencyBoost
		}
		if a.Source.Signature != b.Source.Signature {
			return a.Source.Signature < b.Source.Signature
		}
		return a.Category < b.Category
	})
}

func recordsUntil(records []models.ActivityRecord, now time.Time) []models.ActivityRecord {
	idx := sort.Search(len(records), func(i int) bool {
		return records[i].Timestamp.After(now)
	})
	return records[:idx]
}

// currentWindow returns the collapsed category sequence of the latest session.
func currentWindow(records []models.ActivityRecord, idle time.Duration) []models.Category {
	sessions := partitionSessions(records, idle)
	if len(sessions) == 0 {
		return nil
	}
	runs, _ := sessions[len(sessions)-1].categoryRuns()
	return runs
}

// projectSeconds totals effective seconds per project identifier.
func projectSeconds(records []models.ActivityRecord, idle time.Duration) map[string]int64 {
	out := make(map[string]int64)
	for _, s := range partitionSessions(records, idle) {
		for i, r := range s.records {
			if r.Project != "" {
				out[r.Project] += s.seconds[i]
			}
		}
	}
	return out
}

func endsWith(seq, suffix []models.Category) bool {
	if len(suffix) == 0 || len(seq) < len(suffix) {
		return false
	}
	offset := len(seq) - len(suffix)
	for i, c := range suffix {
		if seq[offset+i] != c {
			return false
		}
	}
	return true
}

var categoryLabels = map[models.Category]string{
	models.CategoryCode:          "coding",
	models.CategoryCommunication: "communication",
	models.CategoryDocument:      "document",
	models.CategoryBrowser:       "research",
	models.CategoryMeeting:       "meeting",
	models.CategoryBreak:         "break",
	models.CategoryOther:         "general",
}

func categoryLabel(c models.Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}
