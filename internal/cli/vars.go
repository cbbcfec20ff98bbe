package cli

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/internal/observability"
	"github.com/wesellis/pulse-activity-tracker/internal/storage"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config
	Logger   *logrus.Logger

	Planner       core.Planner
	Rebuilder     *core.Rebuilder
	ActivityStore storage.ActivityStore
	TodoStore     storage.TodoStoreManager
	Events        core.EventLogger
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

// nowFunc is the clock used by commands; tests replace it.
var nowFunc = time.Now

// logEvent records an event when the event log is enabled. Failures are
// logged and otherwise ignored.
func logEvent(eventType string, data map[string]any) {
	if Events == nil {
		return
	}
	if err := Events.LogEvent(eventType, data); err != nil {
		logger().WithError(err).WithField("event", eventType).Warn("writing event")
	}
}

func logger() logrus.FieldLogger {
	if Logger != nil {
		return Logger
	}
	return logrus.StandardLogger()
}
