package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// parseAtFlag parses an --at flag value. An empty value means now.
func parseAtFlag(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nowFunc(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q (use RFC3339, e.g. 2025-03-03T09:00:00Z)", s)
	}
	return t, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting output as JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// formatMinutes renders a minute count as "1h 30m".
func formatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%s%dm", sign, m)
	case m == 0:
		return fmt.Sprintf("%s%dh", sign, h)
	default:
		return fmt.Sprintf("%s%dh %dm", sign, h, m)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
