// Package api exposes the Pulse decision output over a small JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
)

// SnapshotRebuilder refreshes the published pattern snapshot.
type SnapshotRebuilder interface {
	RebuildOnce(ctx context.Context) (*core.Snapshot, error)
}

// TodoMarker marks detected completions in the todo store.
type TodoMarker interface {
	Load() error
	MarkCompleted(ids []string, at time.Time) (int, error)
	Save() error
}

// Server holds the dependencies behind the HTTP handlers. Rebuilder and Todos
// may be nil, in which case the endpoints that need them answer 503.
type Server struct {
	Planner   core.Planner
	Rebuilder SnapshotRebuilder
	Todos     TodoMarker
	Log       logrus.FieldLogger
	Now       func() time.Time

	todoMu sync.Mutex
}

// NewRouter registers the API routes on a gorilla/mux router.
func NewRouter(s *Server) *mux.Router {
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
	if s.Now == nil {
		s.Now = time.Now
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/decision", s.getDecision).Methods(http.MethodGet)
	r.HandleFunc("/suggestions", s.getSuggestions).Methods(http.MethodGet)
	r.HandleFunc("/compensation", s.postCompensation).Methods(http.MethodPost)
	r.HandleFunc("/completions", s.postCompletions).Methods(http.MethodPost)
	r.HandleFunc("/patterns/rebuild", s.postRebuild).Methods(http.MethodPost)

	return r
}
