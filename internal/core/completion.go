package core

import (
	"sort"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// DetectCompletions returns the IDs of todos that today's activity suggests
// were finished, sorted ascending. A todo counts as finished once the
// records matching it have accumulated at least the pattern's typical
// duration and a matching stint is followed, within the same session, by a
// switch to a different category.
//
// Matching uses the todo's signature: when it names a CONTINUITY pattern, or
// a project seen today, records on that project match; otherwise records of
// the todo's category do. Todos already marked done are skipped.
//
// This is a heuristic. Consumers must let the user reopen a todo.
func (e *SuggestionEngine) DetectCompletions(patterns []models.Pattern, todos []models.Todo, today []models.ActivityRecord) []string {
	if len(todos) == 0 || len(today) == 0 {
		return nil
	}

	bySignature := make(map[string]models.Pattern, len(patterns))
	for _, p := range patterns {
		bySignature[p.Signature] = p
	}
	sessions := partitionSessions(today, e.opts.IdleThreshold)
	projects := projectSeconds(today, e.opts.IdleThreshold)

	var done []string
	for _, todo := range todos {
		if todo.Done() {
			continue
		}

		threshold := e.opts.DefaultCompletionDuration
		p, known := bySignature[todo.Signature]
		if known && p.TypicalDuration > 0 {
			threshold = p.TypicalDuration
		}

		var match func(models.ActivityRecord) bool
		_, projectSeen := projects[todo.Signature]
		switch {
		case todo.Signature != "" && ((known && p.Kind == models.PatternContinuity) || projectSeen):
			project := todo.Signature
			match = func(r models.ActivityRecord) bool { return r.Project == project }
		case todo.Category != "":
			category := todo.Category
			match = func(r models.ActivityRecord) bool { return r.Category == category }
		default:
			continue
		}

		if concluded(sessions, match, todo.CreatedAt, threshold) {
			done = append(done, todo.ID)
		}
	}

	sort.Strings(done)
	return done
}

// concluded reports whether matching records since created accumulate at
// least threshold and a matching stint ends in a context switch once that
// amount has been reached.
func concluded(sessions []session, match func(models.ActivityRecord) bool, created time.Time, threshold time.Duration) bool {
	var acc int64
	for _, s := range sessions {
		for i, r := range s.records {
			if !created.IsZero() && r.Timestamp.Before(created) {
				continue
			}
			if !match(r) {
				continue
			}
			acc += s.seconds[i]
			if i+1 >= len(s.records) {
				continue
			}
			next := s.records[i+1]
			if match(next) || next.Category == r.Category {
				continue
			}
			if time.Duration(acc)*time.Second >= threshold {
				return true
			}
		}
	}
	return false
}
