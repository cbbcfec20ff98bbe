package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultEventLogFile is the event log file name inside the data directory.
const DefaultEventLogFile = "events.jsonl"

// Event represents a single observable event in the system.
type Event struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "patterns.rebuilt", "todos.completed"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	Level string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	// Compact drops events older than before and returns how many were removed.
	Compact(before time.Time) (int, error)
	Close() error
}

// jsonlEventLog implements EventLog using append-only JSONL files.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{
		path: path,
		file: f,
	}, nil
}

// Write appends a JSON-encoded event followed by a newline to the log file.
// Missing IDs, times and levels are filled in.
func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.Level == "" {
		event.Level = LevelForType(event.Type)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read opens the log file for reading, scans line by line, decodes each event,
// and returns those matching the given filter.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // skip malformed lines
		}

		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	return events, nil
}

// Compact rewrites the log without events older than before. The new file
// is written next to the old one and renamed over it, so a failure leaves the
// original intact. Malformed lines are dropped.
func (l *jsonlEventLog) Compact(before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening event log for compaction: %w", err)
	}
	defer func() { _ = src.Close() }()

	tmpPath := l.path + ".tmp"
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating compacted event log: %w", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()

	removed := 0
	w := bufio.NewWriter(dst)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil || event.Time.Before(before) {
			removed++
			continue
		}
		if _, err := w.Write(line); err != nil {
			_ = dst.Close()
			return 0, fmt.Errorf("writing compacted event log: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = dst.Close()
			return 0, fmt.Errorf("writing compacted event log: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = dst.Close()
		return 0, fmt.Errorf("scanning event log: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = dst.Close()
		return 0, fmt.Errorf("writing compacted event log: %w", err)
	}
	if err := dst.Close(); err != nil {
		return 0, fmt.Errorf("closing compacted event log: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := l.file.Close(); err != nil {
		return 0, fmt.Errorf("closing event log: %w", err)
	}
	renameErr := os.Rename(tmpPath, l.path)
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("reopening event log: %w", err)
	}
	l.file = f
	if renameErr != nil {
		return 0, fmt.Errorf("replacing event log: %w", renameErr)
	}
	return removed, nil
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// matchesEventFilter checks whether an event satisfies all filter criteria.
func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	return true
}

// LevelForType returns the default level for an event type: failures are
// ERROR, everything else INFO.
func LevelForType(eventType string) string {
	if strings.HasSuffix(eventType, "_failed") || strings.HasSuffix(eventType, ".failed") {
		return "ERROR"
	}
	return "INFO"
}
