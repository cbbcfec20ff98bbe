package storage

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

func newTestActivityStore(t *testing.T) ActivityStore {
	t.Helper()
	store, err := NewActivityStore(filepath.Join(t.TempDir(), "activity.db"))
	if err != nil {
		t.Fatalf("NewActivityStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func activityAt(ts time.Time, cat models.Category, project string) models.ActivityRecord {
	return models.ActivityRecord{
		Timestamp:         ts,
		DurationSeconds:   60,
		Application:       "editor",
		Category:          cat,
		ProductivityScore: 0.8,
		Project:           project,
	}
}

func TestActivityStore_AppendAndFetch(t *testing.T) {
	store := newTestActivityStore(t)
	ctx := context.Background()
	loc := time.FixedZone("AEST", 10*3600)
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, loc)

	records := []models.ActivityRecord{
		activityAt(base, models.CategoryCode, "auth-module"),
		activityAt(base.Add(time.Minute), models.CategoryCode, "auth-module"),
		activityAt(base.Add(2*time.Minute), models.CategoryCommunication, ""),
	}
	n, err := store.Append(ctx, records)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 3 {
		t.Errorf("Append count = %d, want 3", n)
	}

	got, err := store.Fetch(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Fetch returned %d records, want 3", len(got))
	}
	for i := range records {
		if !got[i].Timestamp.Equal(records[i].Timestamp) {
			t.Errorf("record %d timestamp = %v, want %v", i, got[i].Timestamp, records[i].Timestamp)
		}
		if got[i].Category != records[i].Category {
			t.Errorf("record %d category = %s, want %s", i, got[i].Category, records[i].Category)
		}
		if got[i].Project != records[i].Project {
			t.Errorf("record %d project = %q, want %q", i, got[i].Project, records[i].Project)
		}
	}
	if _, offset := got[0].Timestamp.Zone(); offset != 10*3600 {
		t.Errorf("timezone offset = %d, want %d", offset, 10*3600)
	}

	ranged, err := store.Fetch(ctx, base.Add(time.Minute), base.Add(time.Minute))
	if err != nil {
		t.Fatalf("Fetch range: %v", err)
	}
	if len(ranged) != 1 {
		t.Errorf("ranged Fetch returned %d records, want 1", len(ranged))
	}
}

func TestActivityStore_AppendRejectsOutOfOrder(t *testing.T) {
	store := newTestActivityStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	if _, err := store.Append(ctx, []models.ActivityRecord{activityAt(base, models.CategoryCode, "")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tests := []struct {
		name    string
		records []models.ActivityRecord
		wantErr string
	}{
		{
			name:    "older than stored",
			records: []models.ActivityRecord{activityAt(base.Add(-time.Minute), models.CategoryCode, "")},
			wantErr: "precedes",
		},
		{
			name: "unordered batch",
			records: []models.ActivityRecord{
				activityAt(base.Add(2*time.Minute), models.CategoryCode, ""),
				activityAt(base.Add(time.Minute), models.CategoryCode, ""),
			},
			wantErr: "precedes",
		},
		{
			name:    "unknown category",
			records: []models.ActivityRecord{activityAt(base.Add(time.Minute), models.Category("GAMING"), "")},
			wantErr: "unknown category",
		},
		{
			name: "duration above a day",
			records: func() []models.ActivityRecord {
				r := activityAt(base.Add(time.Minute), models.CategoryCode, "")
				r.DurationSeconds = math.MaxInt64
				return []models.ActivityRecord{r}
			}(),
			wantErr: "more than",
		},
		{
			name:    "zero timestamp",
			records: []models.ActivityRecord{activityAt(time.Time{}, models.CategoryCode, "")},
			wantErr: "no timestamp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Append(ctx, tt.records)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}

	got, err := store.Fetch(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("rejected batches must not be stored, have %d records", len(got))
	}
}

func TestActivityStore_LatestAndPrune(t *testing.T) {
	store := newTestActivityStore(t)
	ctx := context.Background()

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest on empty store: %v", err)
	}
	if !latest.IsZero() {
		t.Errorf("Latest on empty store = %v, want zero", latest)
	}

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	var records []models.ActivityRecord
	for i := 0; i < 5; i++ {
		records = append(records, activityAt(base.AddDate(0, 0, i), models.CategoryDocument, ""))
	}
	if _, err := store.Append(ctx, records); err != nil {
		t.Fatalf("Append: %v", err)
	}

	latest, err = store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !latest.Equal(base.AddDate(0, 0, 4)) {
		t.Errorf("Latest = %v, want %v", latest, base.AddDate(0, 0, 4))
	}

	removed, err := store.Prune(ctx, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune removed %d, want 2", removed)
	}
	rest, err := store.Fetch(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("remaining records = %d, want 3", len(rest))
	}
}

func TestActivityStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity.db")
	ctx := context.Background()
	ts := time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC)

	store, err := NewActivityStore(path)
	if err != nil {
		t.Fatalf("NewActivityStore: %v", err)
	}
	if _, err := store.Append(ctx, []models.ActivityRecord{activityAt(ts, models.CategoryMeeting, "")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewActivityStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Fetch(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0].Category != models.CategoryMeeting {
		t.Errorf("reopened store returned %+v", got)
	}
}

func TestDecodeActivityJSONL(t *testing.T) {
	input := `{"timestamp":"2025-03-03T09:00:00Z","duration_seconds":60,"application":"code","category":"CODE","productivity_score":0.9,"project":"auth-module"}

{"timestamp":"2025-03-03T09:01:00Z","duration_seconds":60,"application":"slack","category":"COMMUNICATION","productivity_score":0.4}
`
	got, err := DecodeActivityJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeActivityJSONL: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d records, want 2", len(got))
	}
	if got[0].Project != "auth-module" {
		t.Errorf("project = %q, want auth-module", got[0].Project)
	}
	if got[1].Category != models.CategoryCommunication {
		t.Errorf("category = %s, want COMMUNICATION", got[1].Category)
	}

	_, err = DecodeActivityJSONL(strings.NewReader("{\"timestamp\":\"2025-03-03T09:00:00Z\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}
