// Package internal provides the App struct that wires all components of
// Pulse together and initializes the CLI layer.
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wesellis/pulse-activity-tracker/internal/cli"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/internal/observability"
	"github.com/wesellis/pulse-activity-tracker/internal/storage"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// ActivityDBFile is the SQLite database holding activity records.
const ActivityDBFile = "activity.db"

// App holds all service dependencies for Pulse.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config
	Logger    *logrus.Logger

	// Storage layer
	Activity storage.ActivityStore
	Todos    storage.TodoStoreManager
	Patterns *storage.PatternFile

	// Core services
	Snapshot  *core.PatternSnapshot
	Index     *core.PatternIndex
	Rebuilder *core.Rebuilder
	Planner   core.Planner

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of Pulse. basePath is the data
// directory holding .pulseconfig, the activity database, todos.yaml,
// patterns.yaml and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// --- Configuration ---
	app.Logger = NewLogger("info")
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		app.Logger.WithError(err).Warn("loading configuration, using defaults")
		cfg = core.DefaultConfig()
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		app.Logger.SetLevel(level)
	} else {
		app.Logger.WithField("level", cfg.LogLevel).Warn("unknown log level, keeping info")
	}

	// --- Storage layer ---
	app.Activity, err = storage.NewActivityStore(filepath.Join(basePath, ActivityDBFile))
	if err != nil {
		return nil, err
	}
	app.Todos = storage.NewTodoStoreManager(basePath)
	if err := app.Todos.Load(); err != nil {
		_ = app.Activity.Close()
		return nil, err
	}
	app.Patterns = storage.NewPatternFile(basePath)

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, observability.DefaultEventLogFile))
	if err != nil {
		// Non-fatal: run without the event log.
		app.Logger.WithError(err).Warn("event log disabled")
		app.EventLog = nil
	}
	if app.EventLog != nil {
		thresholds := observability.DefaultAlertThresholds()
		thresholds.DebtMinutes = cfg.Debt.AlertMinutes
		thresholds.RebuildFailures = cfg.Notifications.RebuildFailures
		thresholds.StaleHours = cfg.Notifications.StaleSnapshotHours
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	app.Notifier = observability.NewNotifier(cfg.Notifications.SlackWebhook)

	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	source := &activitySourceAdapter{store: app.Activity}
	app.Snapshot = core.NewPatternSnapshot()
	if snap, err := app.Patterns.LoadSnapshot(); err != nil {
		app.Logger.WithError(err).Warn("ignoring unreadable pattern snapshot")
	} else {
		app.Snapshot.Store(snap)
	}

	app.Index = core.NewPatternIndex(core.IndexOptionsFromConfig(cfg.Patterns))
	app.Rebuilder = &core.Rebuilder{
		Index:    app.Index,
		Source:   source,
		Snapshot: app.Snapshot,
		Window:   cfg.Patterns.Window,
		Saver:    app.Patterns,
		Events:   evtAdapter,
		Log:      app.Logger,
	}

	app.Planner = core.NewPlanner(core.PlannerDeps{
		Snapshot:           app.Snapshot,
		Suggestions:        core.NewSuggestionEngine(core.SuggestOptionsFromConfig(cfg)),
		Compensation:       core.NewCompensationEngine(core.CompensationOptionsFromConfig(cfg.Compensation)),
		Activity:           source,
		Todos:              app.Todos,
		Preferences:        core.StaticPreferences(cfg.Preferences),
		Events:             evtAdapter,
		DailyTargetMinutes: cfg.Debt.DailyTargetMinutes,
		IdleThreshold:      cfg.Patterns.IdleThreshold,
		InferPreferences:   cfg.InferPrefs,
	})

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = app.Logger
	cli.Planner = app.Planner
	cli.Rebuilder = app.Rebuilder
	cli.ActivityStore = app.Activity
	cli.TodoStore = app.Todos
	cli.Events = evtAdapter
	cli.WorkspaceInit = core.NewWorkspaceInitializer(nil)

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App. It is safe to call on an App
// whose EventLog is nil.
func (a *App) Close() error {
	var firstErr error
	if a.Activity != nil {
		if err := a.Activity.Close(); err != nil {
			firstErr = err
		}
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewLogger returns a logrus logger with full timestamps at the given level.
// Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// ResolveBasePath determines the Pulse data directory. It checks PULSE_HOME,
// then walks up from the current directory looking for .pulseconfig.yaml,
// then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("PULSE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		for _, name := range []string{core.ConfigFileName + ".yaml", core.ConfigFileName + ".yml", core.ConfigFileName} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// activitySourceAdapter adapts storage.ActivityStore to core.ActivitySource.
type activitySourceAdapter struct {
	store storage.ActivityStore
}

func (a *activitySourceAdapter) FetchActivityRecords(ctx context.Context, since, until time.Time) ([]models.ActivityRecord, error) {
	return a.store.Fetch(ctx, since, until)
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelForType(eventType),
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
