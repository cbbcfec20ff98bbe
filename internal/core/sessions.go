package core

import (
	"math"
	"sort"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// session is a contiguous run of records separated by gaps no larger than
// the idle threshold.
type session struct {
	records []models.ActivityRecord
	// seconds holds the effective duration of each record.
	seconds []int64
}

func (s session) start() time.Time {
	return s.records[0].Timestamp
}

func (s session) end() time.Time {
	return s.records[len(s.records)-1].Timestamp
}

func (s session) totalSeconds() int64 {
	var total int64
	for _, sec := range s.seconds {
		total += sec
	}
	return total
}

// dominantCategory returns the category with the most effective time. Ties
// go to the category with more records, then to the lexically smaller name.
func (s session) dominantCategory() models.Category {
	secs := make(map[models.Category]int64)
	counts := make(map[models.Category]int)
	for i, r := range s.records {
		secs[r.Category] += s.seconds[i]
		counts[r.Category]++
	}

	var best models.Category
	first := true
	for _, c := range models.Categories {
		if counts[c] == 0 {
			continue
		}
		if first {
			best, first = c, false
			continue
		}
		switch {
		case secs[c] > secs[best]:
			best = c
		case secs[c] == secs[best] && counts[c] > counts[best]:
			best = c
		case secs[c] == secs[best] && counts[c] == counts[best] && c < best:
			best = c
		}
	}
	return best
}

// categoryRuns collapses consecutive records of the same category into a
// single entry. at[i] is the timestamp at which runs[i] began.
func (s session) categoryRuns() (runs []models.Category, at []time.Time) {
	for _, r := range s.records {
		if len(runs) > 0 && runs[len(runs)-1] == r.Category {
			continue
		}
		runs = append(runs, r.Category)
		at = append(at, r.Timestamp)
	}
	return runs, at
}

// partitionSessions splits records into sessions. A boundary occurs whenever
// the gap between consecutive timestamps exceeds idle. The record opening a
// session has its duration clipped to idle so the idle gap itself is not
// counted as activity. No record counts for more than MaxRecordSeconds.
func partitionSessions(records []models.ActivityRecord, idle time.Duration) []session {
	var sessions []session
	var cur session
	idleSecs := int64(idle / time.Second)

	for i, r := range records {
		if i > 0 && r.Timestamp.Sub(records[i-1].Timestamp) > idle {
			sessions = append(sessions, cur)
			cur = session{}
		}
		sec := min(r.DurationSeconds, models.MaxRecordSeconds)
		if len(cur.records) == 0 && sec > idleSecs {
			sec = idleSecs
		}
		cur.records = append(cur.records, r)
		cur.seconds = append(cur.seconds, sec)
	}
	if len(cur.records) > 0 {
		sessions = append(sessions, cur)
	}
	return sessions
}

// medianDuration returns the median of the given second counts.
func medianDuration(seconds []int64) time.Duration {
	if len(seconds) == 0 {
		return 0
	}
	sorted := make([]int64, len(seconds))
	copy(sorted, seconds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return time.Duration(sorted[mid]) * time.Second
	}
	return time.Duration((sorted[mid-1]+sorted[mid])/2) * time.Second
}

// decayWeight returns the exponential decay weight of an observation that is
// age old, given the half-life.
func decayWeight(age, halfLife time.Duration) float64 {
	if halfLife <= 0 || age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

func clip01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dayKey identifies a calendar day in the record's own location.
type dayKey struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}

func (k dayKey) before(o dayKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	if k.month != o.month {
		return k.month < o.month
	}
	return k.day < o.day
}
