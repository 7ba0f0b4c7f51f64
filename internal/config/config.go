package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/appointcal/calendar_engine/internal/model"
	"github.com/appointcal/calendar_engine/internal/provider"
)

// Config is the process configuration loaded from the environment.
type Config struct {
	DBDSN          string
	Environment    string
	MigrationsPath string
	SettingsPath   string
}

// Settings is the YAML settings file: calendar view defaults, sync
// behavior and the subscribed ICS feeds.
type Settings struct {
	View  model.CalendarViewState `yaml:"view"`
	Sync  model.SyncSettings      `yaml:"sync"`
	Feeds []provider.Feed         `yaml:"feeds"`
}

// Load reads the .env file (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    os.Getenv("ENV"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		SettingsPath:   os.Getenv("SETTINGS_PATH"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = "settings.yaml"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

// LoadSettings reads the settings file, falling back to defaults when
// it does not exist. A present-but-broken file is an error, not a
// silent default.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("⚠️  No settings file at %s, using defaults\n", path)
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	if err := settings.View.Validate(); err != nil {
		return nil, fmt.Errorf("settings view: %w", err)
	}
	if err := settings.Sync.Validate(); err != nil {
		return nil, fmt.Errorf("settings sync: %w", err)
	}

	return settings, nil
}

// DefaultSettings returns the in-memory defaults.
func DefaultSettings() *Settings {
	return &Settings{
		View: model.CalendarViewState{
			ViewMode:            model.ViewModeWeek,
			WeekStartsOn:        time.Monday,
			WorkingHours:        model.WorkingHours{Start: 8, End: 18},
			SlotDurationMinutes: 30,
		},
		Sync: model.SyncSettings{
			Connected: false,
			Options: model.SyncOptions{
				TwoWaySync:        true,
				SyncPastEvents:    false,
				PastWindowDays:    30,
				FutureWindowDays:  90,
				AvoidConflicts:    true,
				AutoSyncFrequency: model.AutoSyncManual,
			},
			ConflictResolution: model.ConflictResolution{
				Strategy:          model.StrategyPrompt,
				AutoResolveSimple: true,
			},
		},
	}
}
