package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// Snapshot is an immutable, fully built pattern set. Callers must not
// modify Patterns.
type Snapshot struct {
	Patterns    []models.Pattern `yaml:"patterns"`
	BuiltAt     time.Time        `yaml:"built_at"`
	RecordCount int              `yaml:"record_count"`
}

// PatternSnapshot publishes pattern sets atomically. Readers always see
// either the previous or the new set, never a partial one.
type PatternSnapshot struct {
	cur atomic.Pointer[Snapshot]
}

// NewPatternSnapshot creates a holder with an empty snapshot.
func NewPatternSnapshot() *PatternSnapshot {
	s := &PatternSnapshot{}
	s.cur.Store(&Snapshot{})
	return s
}

// Load returns the current snapshot. It is never nil.
func (s *PatternSnapshot) Load() *Snapshot {
	return s.cur.Load()
}

// Store swaps in snap. A nil snap is ignored.
func (s *PatternSnapshot) Store(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.cur.Store(snap)
}

// SnapshotSaver persists published snapshots so other processes can reuse
// the last build.
type SnapshotSaver interface {
	SaveSnapshot(snap *Snapshot) error
}

// Rebuilder refreshes a PatternSnapshot from the activity source, either
// once or periodically. A failed rebuild leaves the previous snapshot in
// place.
type Rebuilder struct {
	Index    *PatternIndex
	Source   ActivitySource
	Snapshot *PatternSnapshot
	// Window limits history to the most recent span; zero means everything.
	Window time.Duration
	Saver  SnapshotSaver
	Events EventLogger
	Log    logrus.FieldLogger
	Now    func() time.Time

	// mu serializes rebuilds so an older build never replaces a newer one.
	mu sync.Mutex
}

func (r *Rebuilder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Rebuilder) logger() logrus.FieldLogger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}

// RebuildOnce fetches history, rebuilds patterns and publishes the result.
// Concurrent calls run one at a time, in the order they acquire the lock.
func (r *Rebuilder) RebuildOnce(ctx context.Context) (*Snapshot, error) {
	if r.Index == nil || r.Source == nil || r.Snapshot == nil {
		return nil, errors.New("rebuilder not fully configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var since time.Time
	if r.Window > 0 {
		since = now.Add(-r.Window)
	}

	records, err := r.Source.FetchActivityRecords(ctx, since, now)
	if err != nil {
		r.logEvent(EventPatternsRebuildFailed, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("fetching activity records: %w", err)
	}

	patterns, err := r.Index.Rebuild(records, r.Window)
	if err != nil {
		r.logEvent(EventPatternsRebuildFailed, map[string]any{"error": err.Error(), "records": len(records)})
		return nil, fmt.Errorf("rebuilding patterns: %w", err)
	}

	snap := &Snapshot{Patterns: patterns, BuiltAt: now, RecordCount: len(records)}
	r.Snapshot.Store(snap)

	if r.Saver != nil {
		if err := r.Saver.SaveSnapshot(snap); err != nil {
			r.logger().WithError(err).Warn("persisting pattern snapshot")
		}
	}

	r.logEvent(EventPatternsRebuilt, map[string]any{
		"records":  len(records),
		"patterns": len(patterns),
	})
	return snap, nil
}

// Run rebuilds immediately and then every interval until ctx is cancelled.
// Failures are logged and the loop carries on with the previous snapshot.
func (r *Rebuilder) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("rebuild interval must be positive, got %s", interval)
	}

	log := r.logger().WithField("component", "rebuilder")
	rebuild := func() {
		snap, err := r.RebuildOnce(ctx)
		if err != nil {
			log.WithError(err).Error("pattern rebuild failed, keeping previous snapshot")
			return
		}
		log.WithFields(logrus.Fields{
			"patterns": len(snap.Patterns),
			"records":  snap.RecordCount,
		}).Info("pattern snapshot published")
	}

	rebuild()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rebuild()
		}
	}
}

func (r *Rebuilder) logEvent(eventType string, data map[string]any) {
	if r.Events == nil {
		return
	}
	_ = r.Events.LogEvent(eventType, data)
}
