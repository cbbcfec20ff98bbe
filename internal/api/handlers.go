package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

const maxBodyBytes = 1 << 20

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.Planner.Snapshot()
	body := map[string]any{"status": "ok", "patterns": len(snap.Patterns)}
	if !snap.BuiltAt.IsZero() {
		body["patterns_built_at"] = snap.BuiltAt
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) getDecision(w http.ResponseWriter, r *http.Request) {
	now, err := s.parseAt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	decision, err := s.Planner.Decide(r.Context(), now)
	if err != nil {
		s.internalError(w, "building decision", err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) getSuggestions(w http.ResponseWriter, r *http.Request) {
	now, err := s.parseAt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	suggestions, err := s.Planner.Suggest(r.Context(), now)
	if err != nil {
		s.internalError(w, "generating suggestions", err)
		return
	}
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "count": len(suggestions)})
}

type compensationRequest struct {
	// Minutes is the debt to compensate. When omitted, today's debt against
	// the daily target is used.
	Minutes *int     `json:"minutes"`
	Reason  string   `json:"reason"`
	Hour    *int     `json:"hour"`
	Energy  *float64 `json:"energy"`
}

func (s *Server) postCompensation(w http.ResponseWriter, r *http.Request) {
	var req compensationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Energy != nil && (*req.Energy < 0 || *req.Energy > 1) {
		writeError(w, http.StatusBadRequest, "energy must be between 0 and 1")
		return
	}

	now := s.Now()
	event := models.TimeDebtEvent{Reason: req.Reason, DetectedAt: now}
	if req.Minutes != nil {
		if err := core.ValidateDebtAmount(*req.Minutes); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		event.AmountMinutes = *req.Minutes
	} else {
		debt, err := s.Planner.Debt(r.Context(), now)
		if err != nil {
			s.internalError(w, "calculating debt", err)
			return
		}
		event = debt
	}

	hour := now.Hour()
	if req.Hour != nil {
		hour = *req.Hour
	}
	options, err := s.Planner.Compensate(r.Context(), event, hour, req.Energy)
	if err != nil {
		s.internalError(w, "proposing compensation", err)
		return
	}
	if options == nil {
		options = []models.CompensationOption{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"debt": event, "options": options})
}

type completionsRequest struct {
	// Apply marks the detected todos as completed.
	Apply bool   `json:"apply"`
	At    string `json:"at"`
}

func (s *Server) postCompletions(w http.ResponseWriter, r *http.Request) {
	var req completionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.Now()
	if req.At != "" {
		t, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid at %q: expected RFC3339", req.At))
			return
		}
		now = t
	}

	ids, err := s.Planner.DetectCompletions(r.Context(), now)
	if err != nil {
		s.internalError(w, "detecting completions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	marked := 0
	if req.Apply && len(ids) > 0 {
		if s.Todos == nil {
			writeError(w, http.StatusServiceUnavailable, "todo store not configured")
			return
		}
		marked, err = s.markCompleted(ids, now)
		if err != nil {
			s.internalError(w, "marking todos completed", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"todo_ids": ids, "count": len(ids), "marked": marked})
}

func (s *Server) markCompleted(ids []string, at time.Time) (int, error) {
	s.todoMu.Lock()
	defer s.todoMu.Unlock()

	if err := s.Todos.Load(); err != nil {
		return 0, fmt.Errorf("loading todos: %w", err)
	}
	n, err := s.Todos.MarkCompleted(ids, at)
	if err != nil {
		return 0, err
	}
	if err := s.Todos.Save(); err != nil {
		return 0, fmt.Errorf("saving todos: %w", err)
	}
	return n, nil
}

func (s *Server) postRebuild(w http.ResponseWriter, r *http.Request) {
	if s.Rebuilder == nil {
		writeError(w, http.StatusServiceUnavailable, "pattern rebuilder not configured")
		return
	}
	snap, err := s.Rebuilder.RebuildOnce(r.Context())
	if err != nil {
		s.internalError(w, "rebuilding patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": len(snap.Patterns),
		"records":  snap.RecordCount,
		"built_at": snap.BuiltAt,
	})
}

func (s *Server) parseAt(r *http.Request) (time.Time, error) {
	at := r.URL.Query().Get("at")
	if at == "" {
		return s.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid at %q: expected RFC3339", at)
	}
	return t, nil
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	s.Log.WithFields(logrus.Fields{"action": action}).WithError(err).Error("api request failed")
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %s", action, err))
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst unchanged.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
