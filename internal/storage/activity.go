package storage

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"

	_ "modernc.org/sqlite"
)

// ActivityStore is the append-only log of activity records.
type ActivityStore interface {
	Append(ctx context.Context, records []models.ActivityRecord) (int, error)
	Fetch(ctx context.Context, since, until time.Time) ([]models.ActivityRecord, error)
	Latest(ctx context.Context) (time.Time, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

type sqliteActivityStore struct {
	db *sql.DB
}

// NewActivityStore opens (or creates) the SQLite activity database at dbPath.
func NewActivityStore(dbPath string) (ActivityStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	store := &sqliteActivityStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *sqliteActivityStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS activities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_unix_nano INTEGER NOT NULL,
  ts TEXT NOT NULL,
  duration_seconds INTEGER NOT NULL,
  application TEXT NOT NULL,
  window_title_hash TEXT,
  category TEXT NOT NULL,
  productivity_score REAL NOT NULL,
  project TEXT
);
CREATE INDEX IF NOT EXISTS idx_activities_ts ON activities(ts_unix_nano);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create activities table: %w", err)
	}
	return nil
}

// Append stores records in a single transaction. Records must be ordered and
// must not precede the newest stored record; the log is append-only.
func (s *sqliteActivityStore) Append(ctx context.Context, records []models.ActivityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		return 0, err
	}
	prev := latest
	for i, r := range records {
		if r.Timestamp.IsZero() {
			return 0, fmt.Errorf("appending activity: record %d has no timestamp", i)
		}
		if !prev.IsZero() && r.Timestamp.Before(prev) {
			return 0, fmt.Errorf("appending activity: record %d at %s precedes %s", i, r.Timestamp.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		if r.DurationSeconds < 0 {
			return 0, fmt.Errorf("appending activity: record %d has negative duration", i)
		}
		if r.DurationSeconds > models.MaxRecordSeconds {
			return 0, fmt.Errorf("appending activity: record %d lasts %ds, more than %ds", i, r.DurationSeconds, models.MaxRecordSeconds)
		}
		if !r.Category.Valid() {
			return 0, fmt.Errorf("appending activity: record %d has unknown category %q", i, r.Category)
		}
		prev = r.Timestamp
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stmt = `
INSERT INTO activities (ts_unix_nano, ts, duration_seconds, application, window_title_hash, category, productivity_score, project)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, stmt,
			r.Timestamp.UnixNano(),
			r.Timestamp.Format(time.RFC3339Nano),
			r.DurationSeconds,
			r.Application,
			r.WindowTitleHash,
			string(r.Category),
			r.ProductivityScore,
			r.Project,
		); err != nil {
			return 0, fmt.Errorf("insert activity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return len(records), nil
}

// Fetch returns records with since <= timestamp <= until, oldest first. A zero
// since means from the beginning; a zero until means up to the newest record.
func (s *sqliteActivityStore) Fetch(ctx context.Context, since, until time.Time) ([]models.ActivityRecord, error) {
	lo := int64(-1 << 63)
	hi := int64(1<<63 - 1)
	if !since.IsZero() {
		lo = since.UnixNano()
	}
	if !until.IsZero() {
		hi = until.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT ts, duration_seconds, application, window_title_hash, category, productivity_score, project
FROM activities
WHERE ts_unix_nano >= ? AND ts_unix_nano <= ?
ORDER BY ts_unix_nano ASC, id ASC;`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ActivityRecord
	for rows.Next() {
		var (
			ts       string
			r        models.ActivityRecord
			hash     sql.NullString
			category string
			project  sql.NullString
		)
		if err := rows.Scan(&ts, &r.DurationSeconds, &r.Application, &hash, &category, &r.ProductivityScore, &project); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse activity timestamp %q: %w", ts, err)
		}
		r.Timestamp = parsed
		r.WindowTitleHash = hash.String
		r.Category = models.Category(category)
		r.Project = project.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

// Latest returns the timestamp of the newest record, or the zero time when
// the store is empty.
func (s *sqliteActivityStore) Latest(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT ts FROM activities ORDER BY ts_unix_nano DESC, id DESC LIMIT 1;`).Scan(&ts)
	if err == sql.ErrNoRows || (err == nil && !ts.Valid) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest activity: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, ts.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse latest timestamp: %w", err)
	}
	return t, nil
}

// Prune deletes records older than before and reports how many were removed.
func (s *sqliteActivityStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE ts_unix_nano < ?;`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune activities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune activities: %w", err)
	}
	return n, nil
}

func (s *sqliteActivityStore) Close() error {
	return s.db.Close()
}

// DecodeActivityJSONL reads one JSON-encoded ActivityRecord per line. Blank
// lines are skipped; a malformed line is an error naming its line number.
func DecodeActivityJSONL(r io.Reader) ([]models.ActivityRecord, error) {
	var out []models.ActivityRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec models.ActivityRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning activity file: %w", err)
	}
	return out, nil
}
