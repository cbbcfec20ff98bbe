package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

func TestPatternFile_SaveAndLoad(t *testing.T) {
	pf := NewPatternFile(t.TempDir())

	snap, err := pf.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot on missing file: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}

	built := time.Date(2025, 3, 3, 2, 0, 0, 0, time.UTC)
	want := &core.Snapshot{
		BuiltAt:     built,
		RecordCount: 42,
		Patterns: []models.Pattern{
			{
				Kind:            models.PatternTemporal,
				Signature:       "1-09-CODE",
				Category:        models.CategoryCode,
				Weekday:         time.Monday,
				Hour:            9,
				Support:         8,
				Confidence:      0.8,
				Recent:          true,
				TypicalDuration: 90 * time.Minute,
			},
			{
				Kind:       models.PatternSequence,
				Signature:  "MEETING>DOCUMENT",
				Category:   models.CategoryDocument,
				Sequence:   []models.Category{models.CategoryMeeting, models.CategoryDocument},
				Support:    5,
				Confidence: 0.7,
			},
		},
	}
	if err := pf.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := pf.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.RecordCount != 42 || !got.BuiltAt.Equal(built) {
		t.Errorf("snapshot header = %d/%v", got.RecordCount, got.BuiltAt)
	}
	if len(got.Patterns) != 2 {
		t.Fatalf("patterns = %d, want 2", len(got.Patterns))
	}
	if got.Patterns[0].TypicalDuration != 90*time.Minute || got.Patterns[0].Weekday != time.Monday {
		t.Errorf("temporal pattern = %+v", got.Patterns[0])
	}
	if len(got.Patterns[1].Prefix()) != 1 || got.Patterns[1].Prefix()[0] != models.CategoryMeeting {
		t.Errorf("sequence prefix = %v", got.Patterns[1].Prefix())
	}

	if err := pf.SaveSnapshot(nil); err == nil {
		t.Error("expected error saving nil snapshot")
	}
}

func TestPatternFile_ConcurrentSaves(t *testing.T) {
	pf := NewPatternFile(t.TempDir())
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap := &core.Snapshot{
				Patterns:    []models.Pattern{{Kind: models.PatternTemporal, Signature: "1-09-CODE", Support: 3 + i}},
				BuiltAt:     base.Add(time.Duration(i) * time.Minute),
				RecordCount: i,
			}
			errs <- pf.SaveSnapshot(snap)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("SaveSnapshot: %v", err)
		}
	}

	got, err := pf.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got == nil || len(got.Patterns) != 1 || got.Patterns[0].Support != 3+got.RecordCount {
		t.Errorf("expected one intact snapshot, got %+v", got)
	}
}
