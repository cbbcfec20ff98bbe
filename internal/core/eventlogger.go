package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by core services.
const (
	EventPatternsRebuilt       = "patterns.rebuilt"
	EventPatternsRebuildFailed = "patterns.rebuild_failed"
	EventSuggestionsGenerated  = "suggestions.generated"
	EventCompensationProposed  = "compensation.proposed"
	EventTodosCompleted        = "todos.completed"
	EventTodosAccepted         = "todos.accepted"
	EventActivityImported      = "activity.imported"
	EventActivityPruned        = "activity.pruned"
)
