package core

import (
	"context"
	"time"

	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// ActivitySource retrieves recorded activity, ordered by timestamp.
// This interface is defined locally in core to avoid importing storage.
type ActivitySource interface {
	FetchActivityRecords(ctx context.Context, since, until time.Time) ([]models.ActivityRecord, error)
}

// TodoSource lists todos for completion matching.
// This interface is defined locally in core to avoid importing storage.
type TodoSource interface {
	FetchTodoList() ([]models.Todo, error)
}

// PreferenceSource provides the user's scheduling preferences.
type PreferenceSource interface {
	FetchUserPreferences() (models.UserPreferences, error)
}

// StaticPreferences serves a fixed UserPreferences value.
type StaticPreferences models.UserPreferences

// FetchUserPreferences implements PreferenceSource.
func (p StaticPreferences) FetchUserPreferences() (models.UserPreferences, error) {
	return models.UserPreferences(p), nil
}
