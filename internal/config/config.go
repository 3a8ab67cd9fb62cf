// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/hardstore/internal/backup"
)

// Config holds all application configuration loaded from defaults, an optional
// config file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - Server: HTTP server configuration (port, host, timeouts)
//     - Database: engine selection and connection settings
//     - Backup: backup directory, schedule, retention and timeouts
//
//  2. Security:
//     - CORS origins and rate limiting
//
//  3. Observability:
//     - Logging: Log levels and output formats
//
// Example - Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	backupCfg, err := cfg.BackupSettings()
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Backup   BackupConfig   `koanf:"backup"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// Supported database engines.
const (
	EngineDuckDB   = "duckdb"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"` // Must exceed the restore timeout
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// DatabaseConfig selects and configures the database the backups are taken of.
//
// Environment Variables:
//   - DATABASE_ENGINE: duckdb, postgres or sqlite (default: duckdb)
//   - DATABASE_NAME: name used in synthesized backup file names (default: hardstore)
//   - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS: DuckDB settings
//   - DATABASE_URL: PostgreSQL connection string
//   - PG_DUMP_PATH, PG_RESTORE_PATH: PostgreSQL client binaries
//   - SQLITE_PATH: SQLite database file
type DatabaseConfig struct {
	Engine    string `koanf:"engine"`
	Name      string `koanf:"name"`
	Path      string `koanf:"path"` // DuckDB database file
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)

	URL           string `koanf:"url"`
	MaxConns      int32  `koanf:"max_conns"`
	PgDumpPath    string `koanf:"pg_dump_path"`
	PgRestorePath string `koanf:"pg_restore_path"`

	SQLitePath        string        `koanf:"sqlite_path"`
	SQLiteBusyTimeout time.Duration `koanf:"sqlite_busy_timeout"`
}

// BackupConfig holds the backup subsystem settings.
//
// Environment Variables:
//   - BACKUP_DIR: backup directory (default: /data/backups)
//   - BACKUP_RETENTION_DAYS: default purge age (default: 30)
//   - BACKUP_SCHEDULE_ENABLED, BACKUP_SCHEDULE_TIME (HH:MM), BACKUP_TIMEZONE
//   - BACKUP_CREATE_TIMEOUT, BACKUP_RESTORE_TIMEOUT, BACKUP_VERIFY_TIMEOUT
type BackupConfig struct {
	Dir                 string        `koanf:"dir"`
	Extension           string        `koanf:"extension"`
	RetentionDays       int           `koanf:"retention_days"`
	ScheduleEnabled     bool          `koanf:"schedule_enabled"`
	ScheduleTime        string        `koanf:"schedule_time"`
	Timezone            string        `koanf:"timezone"`
	RetentionInterval   time.Duration `koanf:"retention_interval"`
	MissedRunGrace      time.Duration `koanf:"missed_run_grace"`
	CreateTimeout       time.Duration `koanf:"create_timeout"`
	RestoreTimeout      time.Duration `koanf:"restore_timeout"`
	VerifyTimeout       time.Duration `koanf:"verify_timeout"`
	CatalogCacheTTL     time.Duration `koanf:"catalog_cache_ttl"`
	VerifyBeforeRestore bool          `koanf:"verify_before_restore"`
	PreRestoreBackup    bool          `koanf:"pre_restore_backup"`
	ProcessLock         bool          `koanf:"process_lock"`
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// JSON is recommended for production (structured, machine-parseable).
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// BackupSettings converts the backup section into the backup package's
// configuration, resolving the schedule time zone.
func (c *Config) BackupSettings() (backup.Config, error) {
	b := c.Backup
	cfg := backup.Config{
		Dir:           b.Dir,
		Extension:     b.Extension,
		RetentionDays: b.RetentionDays,
		Schedule: backup.ScheduleConfig{
			Enabled:           b.ScheduleEnabled,
			TimeOfDay:         b.ScheduleTime,
			RetentionInterval: b.RetentionInterval,
			MissedRunGrace:    b.MissedRunGrace,
		},
		CreateTimeout:       b.CreateTimeout,
		RestoreTimeout:      b.RestoreTimeout,
		VerifyTimeout:       b.VerifyTimeout,
		CatalogCacheTTL:     b.CatalogCacheTTL,
		VerifyBeforeRestore: b.VerifyBeforeRestore,
		PreRestoreBackup:    b.PreRestoreBackup,
		ProcessLock:         b.ProcessLock,
	}

	if b.Timezone != "" {
		loc, err := time.LoadLocation(b.Timezone)
		if err != nil {
			return backup.Config{}, fmt.Errorf("BACKUP_TIMEZONE: %w", err)
		}
		cfg.Schedule.Location = loc
	}

	if err := cfg.Validate(); err != nil {
		return backup.Config{}, err
	}
	return cfg, nil
}

// Load reads configuration from all sources in order of precedence:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
