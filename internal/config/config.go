package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Data
		ImportSchedule
		DedupeSchedule
		Global
		Tasks
	}

	Database struct {
		Path string
	}
	Data struct {
		Dir string
	}
	ImportSchedule struct {
		Enabled        bool
		Schedule       string // Cron format: "*/30 * * * *" = every 30 minutes
		EnhancedSchema bool
	}
	DedupeSchedule struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	// Daemon schedules
	v.SetDefault("import_enabled", true)
	v.SetDefault("import_schedule", "*/30 * * * *") // Every 30 minutes
	v.SetDefault("import_enhanced_schema", true)
	v.SetDefault("dedupe_enabled", true)
	v.SetDefault("dedupe_schedule", "0 * * * *") // Hourly at :00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Data: Data{
			Dir: v.GetString("DATA_DIR"),
		},
		ImportSchedule: ImportSchedule{
			Enabled:        v.GetBool("IMPORT_ENABLED"),
			Schedule:       v.GetString("IMPORT_SCHEDULE"),
			EnhancedSchema: v.GetBool("IMPORT_ENHANCED_SCHEMA"),
		},
		DedupeSchedule: DedupeSchedule{
			Enabled:  v.GetBool("DEDUPE_ENABLED"),
			Schedule: v.GetString("DEDUPE_SCHEDULE"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
