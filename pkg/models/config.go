package models

import "time"

// PatternConfig tunes the pattern index.
type PatternConfig struct {
	IdleThreshold   time.Duration `yaml:"idle_threshold" mapstructure:"idle_threshold"`
	SequenceLength  int           `yaml:"sequence_length" mapstructure:"sequence_length"`
	HalfLife        time.Duration `yaml:"half_life" mapstructure:"half_life"`
	MinSupport      int           `yaml:"min_support" mapstructure:"min_support"`
	Window          time.Duration `yaml:"window" mapstructure:"window"`
	RebuildInterval time.Duration `yaml:"rebuild_interval" mapstructure:"rebuild_interval"`
}

// SuggestionConfig tunes the suggestion engine.
type SuggestionConfig struct {
	MaxCount                 int     `yaml:"max_count" mapstructure:"max_count"`
	RecencyBoost             float64 `yaml:"recency_boost" mapstructure:"recency_boost"`
	DefaultCompletionMinutes int     `yaml:"default_completion_minutes" mapstructure:"default_completion_minutes"`
}

// CompensationConfig tunes the compensation engine.
type CompensationConfig struct {
	EndOfDayHour    int     `yaml:"end_of_day_hour" mapstructure:"end_of_day_hour"`
	EnergyThreshold float64 `yaml:"energy_threshold" mapstructure:"energy_threshold"`
	MaxDailyMinutes int     `yaml:"max_daily_minutes" mapstructure:"max_daily_minutes"`
}

// DebtConfig controls daily time-debt accounting.
type DebtConfig struct {
	DailyTargetMinutes int `yaml:"daily_target_minutes" mapstructure:"daily_target_minutes"`
	AlertMinutes       int `yaml:"alert_minutes" mapstructure:"alert_minutes"`
}

// NotificationConfig controls alert thresholds and delivery.
type NotificationConfig struct {
	SlackWebhook       string `yaml:"slack_webhook" mapstructure:"slack_webhook"`
	RebuildFailures    int    `yaml:"rebuild_failures" mapstructure:"rebuild_failures"`
	StaleSnapshotHours int    `yaml:"stale_snapshot_hours" mapstructure:"stale_snapshot_hours"`
}

// Config holds system-wide settings read from .pulseconfig via Viper.
type Config struct {
	Patterns      PatternConfig      `yaml:"patterns" mapstructure:"patterns"`
	Suggestions   SuggestionConfig   `yaml:"suggestions" mapstructure:"suggestions"`
	Compensation  CompensationConfig `yaml:"compensation" mapstructure:"compensation"`
	Preferences   UserPreferences    `yaml:"preferences" mapstructure:"preferences"`
	InferPrefs    bool               `yaml:"infer_preferences" mapstructure:"infer_preferences"`
	Debt          DebtConfig         `yaml:"debt" mapstructure:"debt"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	RetentionDays int                `yaml:"retention_days" mapstructure:"retention_days"`
	APIAddr       string             `yaml:"api_addr" mapstructure:"api_addr"`
	LogLevel      string             `yaml:"log_level" mapstructure:"log_level"`
}
