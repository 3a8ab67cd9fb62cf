// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/tomtom215/hardstore/internal/backup"
)

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Backup.RestoreTimeout {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT (%v) must not be shorter than BACKUP_RESTORE_TIMEOUT (%v)",
			c.Server.WriteTimeout, c.Backup.RestoreTimeout)
	}
	return nil
}

// validateDatabase validates the engine selection and the settings it needs
func (c *Config) validateDatabase() error {
	switch c.Database.Engine {
	case EngineDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required for the duckdb engine")
		}
	case EnginePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres engine")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("DATABASE_MAX_CONNS must be at least 1")
		}
	case EngineSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite engine")
		}
	default:
		return fmt.Errorf("DATABASE_ENGINE must be one of: duckdb, postgres, sqlite")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}
	return nil
}

// validateBackup validates the backup section, including the schedule time
func (c *Config) validateBackup() error {
	b := c.Backup
	if b.Dir == "" || !filepath.IsAbs(b.Dir) {
		return fmt.Errorf("BACKUP_DIR must be an absolute path, got: %q", b.Dir)
	}
	if b.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be non-negative, got: %d", b.RetentionDays)
	}
	if b.ScheduleEnabled {
		if _, _, err := backup.ParseTimeOfDay(b.ScheduleTime); err != nil {
			return fmt.Errorf("BACKUP_SCHEDULE_TIME: %w", err)
		}
	}
	if b.Timezone != "" {
		if _, err := time.LoadLocation(b.Timezone); err != nil {
			return fmt.Errorf("BACKUP_TIMEZONE: %w", err)
		}
	}
	for name, d := range map[string]time.Duration{
		"BACKUP_CREATE_TIMEOUT":  b.CreateTimeout,
		"BACKUP_RESTORE_TIMEOUT": b.RestoreTimeout,
		"BACKUP_VERIFY_TIMEOUT":  b.VerifyTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got: %v", name, d)
		}
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ShouldWarnAboutCORS returns true when wildcard CORS is used in production
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
