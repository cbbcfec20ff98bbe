package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// IndexOptions tunes pattern derivation.
type IndexOptions struct {
	// IdleThreshold is the largest gap between records that still belongs to
	// the same session.
	IdleThreshold time.Duration
	// SequenceLength is the number of categories in a SEQUENCE window.
	SequenceLength int
	// HalfLife controls the exponential decay applied to SEQUENCE windows.
	HalfLife time.Duration
	// MinSupport is the minimum occurrence count for a pattern to be kept.
	MinSupport int
	// RecentWindow is how many of the latest occurrences count as recent.
	RecentWindow int
}

// DefaultIndexOptions returns the documented defaults: 15 minute idle
// threshold, windows of 3, 14 day half-life, minimum support 3.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		IdleThreshold:  15 * time.Minute,
		SequenceLength: 3,
		HalfLife:       14 * 24 * time.Hour,
		MinSupport:     3,
		RecentWindow:   3,
	}
}

// IndexOptionsFromConfig maps configuration onto IndexOptions, keeping the
// defaults for unset values.
func IndexOptionsFromConfig(cfg models.PatternConfig) IndexOptions {
	opts := DefaultIndexOptions()
	if cfg.IdleThreshold > 0 {
		opts.IdleThreshold = cfg.IdleThreshold
	}
	if cfg.SequenceLength >= 2 {
		opts.SequenceLength = cfg.SequenceLength
	}
	if cfg.HalfLife > 0 {
		opts.HalfLife = cfg.HalfLife
	}
	if cfg.MinSupport > 0 {
		opts.MinSupport = cfg.MinSupport
	}
	return opts
}

// PatternIndex derives Patterns from activity history. It holds no state
// besides its options and is safe for concurrent use.
type PatternIndex struct {
	opts IndexOptions
}

// NewPatternIndex creates a PatternIndex. Zero-valued options fall back to
// the defaults.
func NewPatternIndex(opts IndexOptions) *PatternIndex {
	def := DefaultIndexOptions()
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = def.IdleThreshold
	}
	if opts.SequenceLength < 2 {
		opts.SequenceLength = def.SequenceLength
	}
	if opts.HalfLife <= 0 {
		opts.HalfLife = def.HalfLife
	}
	if opts.MinSupport <= 0 {
		opts.MinSupport = def.MinSupport
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = def.RecentWindow
	}
	return &PatternIndex{opts: opts}
}

// Options returns the effective options.
func (ix *PatternIndex) Options() IndexOptions {
	return ix.opts
}

// ValidateRecords checks that records form a usable history: timestamps never
// go backwards, durations lie in [0, MaxRecordSeconds], categories are known
// and productivity scores lie in [0,1].
func ValidateRecords(records []models.ActivityRecord) error {
	for i, r := range records {
		if r.Timestamp.IsZero() {
			return &InconsistentInputError{Index: i, Reason: "missing timestamp"}
		}
		if i > 0 && r.Timestamp.Before(records[i-1].Timestamp) {
			return &InconsistentInputError{
				Index:  i,
				Reason: fmt.Sprintf("timestamp %s precedes previous %s", r.Timestamp.Format(time.RFC3339), records[i-1].Timestamp.Format(time.RFC3339)),
			}
		}
		if r.DurationSeconds < 0 {
			return &InconsistentInputError{Index: i, Reason: fmt.Sprintf("negative duration %d", r.DurationSeconds)}
		}
		if r.DurationSeconds > models.MaxRecordSeconds {
			return &InconsistentInputError{Index: i, Reason: fmt.Sprintf("duration %ds exceeds %ds", r.DurationSeconds, models.MaxRecordSeconds)}
		}
		if !r.Category.Valid() {
			return &InconsistentInputError{Index: i, Reason: fmt.Sprintf("unknown category %q", r.Category)}
		}
		if math.IsNaN(r.ProductivityScore) || r.ProductivityScore < 0 || r.ProductivityScore > 1 {
			return &InconsistentInputError{Index: i, Reason: fmt.Sprintf("productivity score %v outside [0,1]", r.ProductivityScore)}
		}
	}
	return nil
}

// Rebuild derives the full pattern set from records. Only records within
// window of the newest record are considered; a zero window uses all of
// them. Empty input yields an empty set. Non-monotonic input is rejected
// with an error wrapping ErrInconsistentInput.
//
// The result is sorted by kind (TEMPORAL, SEQUENCE, CONTINUITY) and then by
// signature, so identical input always produces identical output.
func (ix *PatternIndex) Rebuild(records []models.ActivityRecord, window time.Duration) ([]models.Pattern, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	records = withinWindow(records, window)
	if len(records) == 0 {
		return nil, nil
	}

	sessions := partitionSessions(records, ix.opts.IdleThreshold)
	ref := records[len(records)-1].Timestamp

	var patterns []models.Pattern
	patterns = append(patterns, ix.temporalPatterns(sessions)...)
	patterns = append(patterns, ix.sequencePatterns(sessions, ref)...)
	patterns = append(patterns, ix.continuityPatterns(sessions)...)
	SortPatterns(patterns)
	return patterns, nil
}

func withinWindow(records []models.ActivityRecord, window time.Duration) []models.ActivityRecord {
	if window <= 0 || len(records) == 0 {
		return records
	}
	cutoff := records[len(records)-1].Timestamp.Add(-window)
	idx := sort.Search(len(records), func(i int) bool {
		return !records[i].Timestamp.Before(cutoff)
	})
	return records[idx:]
}

var kindOrder = map[models.PatternKind]int{
	models.PatternTemporal:   0,
	models.PatternSequence:   1,
	models.PatternContinuity: 2,
}

// SortPatterns orders patterns by kind and then signature.
func SortPatterns(patterns []models.Pattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		if kindOrder[patterns[i].Kind] != kindOrder[patterns[j].Kind] {
			return kindOrder[patterns[i].Kind] < kindOrder[patterns[j].Kind]
		}
		return patterns[i].Signature < patterns[j].Signature
	})
}

// TemporalSignature formats the signature of a TEMPORAL pattern.
func TemporalSignature(weekday time.Weekday, hour int, category models.Category) string {
	return fmt.Sprintf("%d-%02d-%s", int(weekday), hour, category)
}

// SequenceSignature formats the signature of a SEQUENCE pattern.
func SequenceSignature(seq []models.Category) string {
	parts := make([]string, len(seq))
	for i, c := range seq {
		parts[i] = string(c)
	}
	return strings.Join(parts, ">")
}

// --- TEMPORAL ---

type hourBucket struct {
	weekday time.Weekday
	hour    int
}

type bucketEntry struct {
	dominant models.Category
	start    time.Time
	seconds  int64
}

func (ix *PatternIndex) temporalPatterns(sessions []session) []models.Pattern {
	buckets := make(map[hourBucket][]bucketEntry)
	for _, s := range sessions {
		start := s.start()
		key := hourBucket{weekday: start.Weekday(), hour: start.Hour()}
		buckets[key] = append(buckets[key], bucketEntry{
			dominant: s.dominantCategory(),
			start:    start,
			seconds:  s.totalSeconds(),
		})
	}

	var patterns []models.Pattern
	for key, entries := range buckets {
		total := len(entries)
		recentFrom := total - ix.opts.RecentWindow
		if recentFrom < 0 {
			recentFrom = 0
		}

		for _, c := range models.Categories {
			var secs []int64
			var last time.Time
			recent := false
			for i, e := range entries {
				if e.dominant != c {
					continue
				}
				secs = append(secs, e.seconds)
				last = e.start
				if i >= recentFrom {
					recent = true
				}
			}
			if len(secs) < ix.opts.MinSupport {
				continue
			}
			patterns = append(patterns, models.Pattern{
				Kind:            models.PatternTemporal,
				Signature:       TemporalSignature(key.weekday, key.hour, c),
				Category:        c,
				Weekday:         key.weekday,
				Hour:            key.hour,
				Support:         len(secs),
				Confidence:      clip01(float64(len(secs)) / float64(total)),
				Recent:          recent,
				TypicalDuration: medianDuration(secs),
				LastSeen:        last,
			})
		}
	}
	return patterns
}

// --- SEQUENCE ---

type windowOccurrence struct {
	seq []models.Category
	at  time.Time
}

type sequenceStats struct {
	seq    []models.Category
	count  int
	weight float64
	last   time.Time
}

func (ix *PatternIndex) sequencePatterns(sessions []session, ref time.Time) []models.Pattern {
	n := ix.opts.SequenceLength

	var occurrences []windowOccurrence
	for _, s := range sessions {
		runs, at := s.categoryRuns()
		for i := 0; i+n <= len(runs); i++ {
			occurrences = append(occurrences, windowOccurrence{
				seq: append([]models.Category(nil), runs[i:i+n]...),
				at:  at[i+n-1],
			})
		}
	}
	if len(occurrences) == 0 {
		return nil
	}

	stats := make(map[string]*sequenceStats)
	prefixWeight := make(map[string]float64)
	// prefixHistory records, per prefix, the signatures that followed it in
	// chronological order.
	prefixHistory := make(map[string][]string)

	for _, o := range occurrences {
		w := decayWeight(ref.Sub(o.at), ix.opts.HalfLife)
		sig := SequenceSignature(o.seq)
		prefix := SequenceSignature(o.seq[:n-1])

		st, ok := stats[sig]
		if !ok {
			st = &sequenceStats{seq: o.seq}
			stats[sig] = st
		}
		st.count++
		st.weight += w
		st.last = o.at

		prefixWeight[prefix] += w
		prefixHistory[prefix] = append(prefixHistory[prefix], sig)
	}

	var patterns []models.Pattern
	for sig, st := range stats {
		if st.count < ix.opts.MinSupport {
			continue
		}
		prefix := SequenceSignature(st.seq[:n-1])
		denom := prefixWeight[prefix]
		if denom <= 0 {
			continue
		}

		history := prefixHistory[prefix]
		recentFrom := len(history) - ix.opts.RecentWindow
		if recentFrom < 0 {
			recentFrom = 0
		}
		recent := false
		for _, h := range history[recentFrom:] {
			if h == sig {
				recent = true
				break
			}
		}

		patterns = append(patterns, models.Pattern{
			Kind:       models.PatternSequence,
			Signature:  sig,
			Category:   st.seq[n-1],
			Sequence:   st.seq,
			Support:    st.count,
			Confidence: clip01(st.weight / denom),
			Recent:     recent,
			LastSeen:   st.last,
		})
	}
	return patterns
}

// --- CONTINUITY ---

type projectDay struct {
	day     dayKey
	seconds int64
	last    time.Time
	// switched is true when the day's last stint on the project ended with a
	// switch to another category within the same session.
	switched bool
}

type projectHistory struct {
	days       []*projectDay
	byDay      map[dayKey]*projectDay
	catSeconds map[models.Category]int64
}

func (ix *PatternIndex) continuityPatterns(sessions []session) []models.Pattern {
	projects := make(map[string]*projectHistory)

	for _, s := range sessions {
		for i, r := range s.records {
			if r.Project == "" {
				continue
			}
			ph, ok := projects[r.Project]
			if !ok {
				ph = &projectHistory{
					byDay:      make(map[dayKey]*projectDay),
					catSeconds: make(map[models.Category]int64),
				}
				projects[r.Project] = ph
			}
			key := dayOf(r.Timestamp)
			pd, ok := ph.byDay[key]
			if !ok {
				pd = &projectDay{day: key}
				ph.byDay[key] = pd
				ph.days = append(ph.days, pd)
			}
			pd.seconds += s.seconds[i]
			pd.last = r.Timestamp
			ph.catSeconds[r.Category] += s.seconds[i]

			if i+1 < len(s.records) {
				next := s.records[i+1]
				if next.Project != r.Project {
					pd.switched = next.Category != r.Category
				}
			} else {
				pd.switched = false
			}
		}
	}

	var patterns []models.Pattern
	for project, ph := range projects {
		support := len(ph.days)
		if support < ix.opts.MinSupport {
			continue
		}

		secs := make([]int64, len(ph.days))
		for i, d := range ph.days {
			secs[i] = d.seconds
		}
		typical := medianDuration(secs)

		// An occurrence leads to the outcome when the day's work was left
		// unfinished and the project was picked up again on a later day.
		outcomes := 0
		recent := false
		recentFrom := len(ph.days) - ix.opts.RecentWindow
		for i, d := range ph.days {
			concluded := d.seconds >= int64(typical/time.Second) && d.switched
			if concluded || i == len(ph.days)-1 {
				continue
			}
			outcomes++
			if i >= recentFrom {
				recent = true
			}
		}
		if outcomes == 0 {
			continue
		}

		patterns = append(patterns, models.Pattern{
			Kind:            models.PatternContinuity,
			Signature:       project,
			Category:        dominantOf(ph.catSeconds),
			Project:         project,
			Support:         support,
			Confidence:      clip01(float64(outcomes) / float64(support)),
			Recent:          recent,
			TypicalDuration: typical,
			LastSeen:        ph.days[len(ph.days)-1].last,
		})
	}
	return patterns
}

func dominantOf(secs map[models.Category]int64) models.Category {
	best := models.CategoryOther
	found := false
	for _, c := range models.Categories {
		v, ok := secs[c]
		if !ok {
			continue
		}
		if !found || v > secs[best] || (v == secs[best] && c < best) {
			best, found = c, true
		}
	}
	return best
}
