// Package core contains the decision logic for Pulse: the pattern index,
// suggestion and completion detection, time-debt compensation, the pattern
// snapshot lifecycle and configuration.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// ConfigFileName is the name of the global configuration file, without
// extension, looked up in the base path.
const ConfigFileName = ".pulseconfig"

// ConfigurationManager loads and validates Pulse configuration.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML config file and PULSE_* environment overrides.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() *models.Config {
	idx := DefaultIndexOptions()
	sug := DefaultSuggestOptions()
	comp := DefaultCompensationOptions()
	return &models.Config{
		Patterns: models.PatternConfig{
			IdleThreshold:   idx.IdleThreshold,
			SequenceLength:  idx.SequenceLength,
			HalfLife:        idx.HalfLife,
			MinSupport:      idx.MinSupport,
			Window:          90 * 24 * time.Hour,
			RebuildInterval: 24 * time.Hour,
		},
		Suggestions: models.SuggestionConfig{
			MaxCount:                 sug.MaxCount,
			RecencyBoost:             sug.RecencyBoost,
			DefaultCompletionMinutes: int(sug.DefaultCompletionDuration / time.Minute),
		},
		Compensation: models.CompensationConfig{
			EndOfDayHour:    comp.EndOfDayHour,
			EnergyThreshold: comp.EnergyThreshold,
			MaxDailyMinutes: comp.MaxDailyMinutes,
		},
		Preferences: models.UserPreferences{
			MorningPerson:    false,
			MaxExtendMinutes: 60,
		},
		Debt: models.DebtConfig{
			DailyTargetMinutes: 8 * 60,
			AlertMinutes:       120,
		},
		Notifications: models.NotificationConfig{
			RebuildFailures:    3,
			StaleSnapshotHours: 48,
		},
		RetentionDays: 180,
		APIAddr:       "localhost:8000",
		LogLevel:      "info",
	}
}

// LoadConfig reads .env (if present) and .pulseconfig from the base path.
// Missing files yield defaults. PULSE_* environment variables override file
// values, e.g. PULSE_SUGGESTIONS_MAX_COUNT.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(filepath.Join(cm.basePath, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("patterns.idle_threshold", cfg.Patterns.IdleThreshold)
	v.SetDefault("patterns.sequence_length", cfg.Patterns.SequenceLength)
	v.SetDefault("patterns.half_life", cfg.Patterns.HalfLife)
	v.SetDefault("patterns.min_support", cfg.Patterns.MinSupport)
	v.SetDefault("patterns.window", cfg.Patterns.Window)
	v.SetDefault("patterns.rebuild_interval", cfg.Patterns.RebuildInterval)
	v.SetDefault("suggestions.max_count", cfg.Suggestions.MaxCount)
	v.SetDefault("suggestions.recency_boost", cfg.Suggestions.RecencyBoost)
	v.SetDefault("suggestions.default_completion_minutes", cfg.Suggestions.DefaultCompletionMinutes)
	v.SetDefault("compensation.end_of_day_hour", cfg.Compensation.EndOfDayHour)
	v.SetDefault("compensation.energy_threshold", cfg.Compensation.EnergyThreshold)
	v.SetDefault("compensation.max_daily_minutes", cfg.Compensation.MaxDailyMinutes)
	v.SetDefault("preferences.max_extend_minutes", cfg.Preferences.MaxExtendMinutes)
	v.SetDefault("preferences.infer", cfg.InferPrefs)
	v.SetDefault("debt.daily_target_minutes", cfg.Debt.DailyTargetMinutes)
	v.SetDefault("debt.alert_minutes", cfg.Debt.AlertMinutes)
	v.SetDefault("notifications.slack_webhook", cfg.Notifications.SlackWebhook)
	v.SetDefault("notifications.rebuild_failures", cfg.Notifications.RebuildFailures)
	v.SetDefault("notifications.stale_snapshot_hours", cfg.Notifications.StaleSnapshotHours)
	v.SetDefault("retention.days", cfg.RetentionDays)
	v.SetDefault("api.addr", cfg.APIAddr)
	v.SetDefault("log.level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	// Map nested YAML keys to Config fields.
	cfg.Patterns.IdleThreshold = v.GetDuration("patterns.idle_threshold")
	cfg.Patterns.SequenceLength = v.GetInt("patterns.sequence_length")
	cfg.Patterns.HalfLife = v.GetDuration("patterns.half_life")
	cfg.Patterns.MinSupport = v.GetInt("patterns.min_support")
	cfg.Patterns.Window = v.GetDuration("patterns.window")
	cfg.Patterns.RebuildInterval = v.GetDuration("patterns.rebuild_interval")
	cfg.Suggestions.MaxCount = v.GetInt("suggestions.max_count")
	cfg.Suggestions.RecencyBoost = v.GetFloat64("suggestions.recency_boost")
	cfg.Suggestions.DefaultCompletionMinutes = v.GetInt("suggestions.default_completion_minutes")
	cfg.Compensation.EndOfDayHour = v.GetInt("compensation.end_of_day_hour")
	cfg.Compensation.EnergyThreshold = v.GetFloat64("compensation.energy_threshold")
	cfg.Compensation.MaxDailyMinutes = v.GetInt("compensation.max_daily_minutes")
	// No default for morning_person: IsSet must only see explicit values.
	if v.IsSet("preferences.morning_person") {
		cfg.Preferences.MorningPerson = v.GetBool("preferences.morning_person")
		cfg.Preferences.MorningPersonSet = true
	}
	cfg.Preferences.MaxExtendMinutes = v.GetInt("preferences.max_extend_minutes")
	cfg.InferPrefs = v.GetBool("preferences.infer")
	cfg.Debt.DailyTargetMinutes = v.GetInt("debt.daily_target_minutes")
	cfg.Debt.AlertMinutes = v.GetInt("debt.alert_minutes")
	cfg.Notifications.SlackWebhook = v.GetString("notifications.slack_webhook")
	cfg.Notifications.RebuildFailures = v.GetInt("notifications.rebuild_failures")
	cfg.Notifications.StaleSnapshotHours = v.GetInt("notifications.stale_snapshot_hours")
	cfg.RetentionDays = v.GetInt("retention.days")
	cfg.APIAddr = v.GetString("api.addr")
	cfg.LogLevel = v.GetString("log.level")

	curve, err := parseEnergyCurve(v.GetStringMap("preferences.energy_curve"))
	if err != nil {
		return nil, err
	}
	cfg.Preferences.EnergyCurve = curve

	return cfg, nil
}

// parseEnergyCurve converts the hour-keyed YAML map into map[int]float64.
func parseEnergyCurve(raw map[string]interface{}) (map[int]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	curve := make(map[int]float64, len(raw))
	for k, val := range raw {
		var hour int
		if _, err := fmt.Sscanf(k, "%d", &hour); err != nil {
			return nil, fmt.Errorf("preferences.energy_curve: hour %q is not a number", k)
		}
		switch n := val.(type) {
		case float64:
			curve[hour] = n
		case int:
			curve[hour] = float64(n)
		default:
			return nil, fmt.Errorf("preferences.energy_curve: value for hour %d is not a number", hour)
		}
	}
	return curve, nil
}

// ValidateConfig checks the configuration for invalid values and returns
// one error listing every problem found. Preference problems are not
// reported here: the compensation engine degrades the affected option.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Patterns.IdleThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("patterns.idle_threshold must be positive, got %s", cfg.Patterns.IdleThreshold))
	}
	if cfg.Patterns.SequenceLength < 2 {
		errs = append(errs, fmt.Sprintf("patterns.sequence_length must be at least 2, got %d", cfg.Patterns.SequenceLength))
	}
	if cfg.Patterns.HalfLife <= 0 {
		errs = append(errs, fmt.Sprintf("patterns.half_life must be positive, got %s", cfg.Patterns.HalfLife))
	}
	if cfg.Patterns.MinSupport < 1 {
		errs = append(errs, fmt.Sprintf("patterns.min_support must be at least 1, got %d", cfg.Patterns.MinSupport))
	}
	if cfg.Patterns.Window < 0 {
		errs = append(errs, fmt.Sprintf("patterns.window must not be negative, got %s", cfg.Patterns.Window))
	}
	if cfg.Suggestions.MaxCount < 1 {
		errs = append(errs, fmt.Sprintf("suggestions.max_count must be at least 1, got %d", cfg.Suggestions.MaxCount))
	}
	if cfg.Suggestions.RecencyBoost < 0 || cfg.Suggestions.RecencyBoost > 0.05 {
		errs = append(errs, fmt.Sprintf("suggestions.recency_boost %v is invalid, must be between 0 and 0.05", cfg.Suggestions.RecencyBoost))
	}
	if cfg.Compensation.EndOfDayHour < 1 || cfg.Compensation.EndOfDayHour > 24 {
		errs = append(errs, fmt.Sprintf("compensation.end_of_day_hour %d is invalid, must be between 1 and 24", cfg.Compensation.EndOfDayHour))
	}
	if cfg.Compensation.EnergyThreshold < 0 || cfg.Compensation.EnergyThreshold > 1 {
		errs = append(errs, fmt.Sprintf("compensation.energy_threshold %v is invalid, must be between 0 and 1", cfg.Compensation.EnergyThreshold))
	}
	if cfg.Compensation.MaxDailyMinutes < 1 {
		errs = append(errs, fmt.Sprintf("compensation.max_daily_minutes must be at least 1, got %d", cfg.Compensation.MaxDailyMinutes))
	}
	if cfg.Debt.DailyTargetMinutes < 0 {
		errs = append(errs, fmt.Sprintf("debt.daily_target_minutes must not be negative, got %d", cfg.Debt.DailyTargetMinutes))
	}
	if cfg.Debt.AlertMinutes < 0 {
		errs = append(errs, fmt.Sprintf("debt.alert_minutes must not be negative, got %d", cfg.Debt.AlertMinutes))
	}
	if cfg.Notifications.RebuildFailures < 0 || cfg.Notifications.StaleSnapshotHours < 0 {
		errs = append(errs, "notifications thresholds must not be negative")
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, fmt.Sprintf("retention.days must not be negative, got %d", cfg.RetentionDays))
	}
	for hour := range cfg.Preferences.EnergyCurve {
		if hour < 0 || hour > 23 {
			errs = append(errs, fmt.Sprintf("preferences.energy_curve hour %d is invalid, must be between 0 and 23", hour))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
