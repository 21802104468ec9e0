/*
Package config loads service settings.

PURPOSE:
  Central settings with sane defaults, overridable through environment
  variables (prefix RIDER_) or an optional .env file. Everything the
  operator may tune lives here: HTTP port, store backend, bulk-run
  throttling, and the recompute scheduler.

ENVIRONMENT:
  RIDER_PORT                  HTTP port (default 8080)
  RIDER_STORE_BACKEND         memory | sqlite | rest (default sqlite)
  RIDER_SQLITE_PATH           database path (default riders.db)
  RIDER_REST_BASE_URL         hosted backend base URL
  RIDER_REST_TOKEN            hosted backend API token
  RIDER_REST_TABLE            riders table name (default riders)
  RIDER_BULK_PAGE_SIZE        fetch page size (default 1000)
  RIDER_BULK_BATCH_SIZE       records per batch (default 200)
  RIDER_BULK_CONCURRENCY      batches per window (default 10)
  RIDER_BULK_WINDOW_DELAY     pause between windows (default 300ms)
  RIDER_SCHEDULER_ENABLED     periodic recompute on/off (default false)
  RIDER_SCHEDULER_INTERVAL    periodic recompute interval (default 24h)
  RIDER_LOG_LEVEL             debug|info|warn|error (default info)
  RIDER_LOG_FORMAT            json|console (default json)
*/
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved service configuration.
type Config struct {
	Port int

	StoreBackend string
	SQLitePath   string
	RestBaseURL  string
	RestToken    string
	RestTable    string

	BulkPageSize    int
	BulkBatchSize   int
	BulkConcurrency int
	BulkWindowDelay time.Duration

	SchedulerEnabled  bool
	SchedulerInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads defaults, an optional .env file, and RIDER_-prefixed
// environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("port", 8080)
	v.SetDefault("store_backend", "sqlite")
	v.SetDefault("sqlite_path", "riders.db")
	v.SetDefault("rest_base_url", "")
	v.SetDefault("rest_token", "")
	v.SetDefault("rest_table", "riders")
	v.SetDefault("bulk_page_size", 1000)
	v.SetDefault("bulk_batch_size", 200)
	v.SetDefault("bulk_concurrency", 10)
	v.SetDefault("bulk_window_delay", 300*time.Millisecond)
	v.SetDefault("scheduler_enabled", false)
	v.SetDefault("scheduler_interval", 24*time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Load .env if present; ignore if it does not exist.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("RIDER")
	v.AutomaticEnv()

	return &Config{
		Port:              v.GetInt("port"),
		StoreBackend:      v.GetString("store_backend"),
		SQLitePath:        v.GetString("sqlite_path"),
		RestBaseURL:       v.GetString("rest_base_url"),
		RestToken:         v.GetString("rest_token"),
		RestTable:         v.GetString("rest_table"),
		BulkPageSize:      v.GetInt("bulk_page_size"),
		BulkBatchSize:     v.GetInt("bulk_batch_size"),
		BulkConcurrency:   v.GetInt("bulk_concurrency"),
		BulkWindowDelay:   v.GetDuration("bulk_window_delay"),
		SchedulerEnabled:  v.GetBool("scheduler_enabled"),
		SchedulerInterval: v.GetDuration("scheduler_interval"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
	}, nil
}
