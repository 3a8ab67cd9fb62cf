// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all backup-related configuration
type Config struct {
	// Directory holding one file per backup. Must be absolute.
	Dir string

	// Extension appended to backup file names (default ".bak").
	Extension string

	// RetentionDays is the age threshold used by automatic purges and the
	// default for DELETE /backups/old.
	RetentionDays int

	// Schedule configuration
	Schedule ScheduleConfig

	// Per-operation budgets. Exceeding one aborts the operation.
	CreateTimeout  time.Duration
	RestoreTimeout time.Duration
	VerifyTimeout  time.Duration

	// CatalogCacheTTL bounds how long a directory listing is reused. Zero
	// disables the cache.
	CatalogCacheTTL time.Duration

	// VerifyBeforeRestore runs a structural verification while holding the
	// restore lock and refuses to restore an invalid file.
	VerifyBeforeRestore bool

	// PreRestoreBackup takes a safety backup of the live database before a
	// restore starts.
	PreRestoreBackup bool

	// ProcessLock additionally takes an flock on <Dir>/.lock so that the
	// server and the operator CLI never run operations at the same time.
	ProcessLock bool
}

// ScheduleConfig controls the unattended daily backup
type ScheduleConfig struct {
	Enabled bool

	// TimeOfDay is the local wall-clock time of the daily backup, "HH:MM".
	TimeOfDay string

	// Location interprets TimeOfDay. Nil means time.Local.
	Location *time.Location

	// RetentionInterval is how often the periodic retention sweep runs.
	// Zero disables the sweep; purges after automatic backups still happen.
	RetentionInterval time.Duration

	// MissedRunGrace is how late a timer may fire before the run counts as
	// missed (host suspended, clock jump) and is skipped.
	MissedRunGrace time.Duration
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Dir:           "/data/backups",
		Extension:     ".bak",
		RetentionDays: 30,
		Schedule: ScheduleConfig{
			Enabled:           true,
			TimeOfDay:         "02:00",
			RetentionInterval: 24 * time.Hour,
			MissedRunGrace:    time.Hour,
		},
		CreateTimeout:       5 * time.Minute,
		RestoreTimeout:      10 * time.Minute,
		VerifyTimeout:       2 * time.Minute,
		CatalogCacheTTL:     5 * time.Second,
		VerifyBeforeRestore: true,
		PreRestoreBackup:    false,
		ProcessLock:         true,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	if !filepath.IsAbs(c.Dir) {
		return fmt.Errorf("BACKUP_DIR must be an absolute path, got: %s", c.Dir)
	}
	if c.Extension == "" || !strings.HasPrefix(c.Extension, ".") || strings.ContainsAny(c.Extension, `/\`) {
		return fmt.Errorf("backup extension must start with '.' and contain no path separators, got: %q", c.Extension)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be non-negative, got: %d", c.RetentionDays)
	}
	if c.CreateTimeout <= 0 {
		return fmt.Errorf("BACKUP_CREATE_TIMEOUT must be positive, got: %v", c.CreateTimeout)
	}
	if c.RestoreTimeout <= 0 {
		return fmt.Errorf("BACKUP_RESTORE_TIMEOUT must be positive, got: %v", c.RestoreTimeout)
	}
	if c.VerifyTimeout <= 0 {
		return fmt.Errorf("BACKUP_VERIFY_TIMEOUT must be positive, got: %v", c.VerifyTimeout)
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("catalog cache TTL must be non-negative, got: %v", c.CatalogCacheTTL)
	}
	if c.Schedule.Enabled {
		if _, _, err := ParseTimeOfDay(c.Schedule.TimeOfDay); err != nil {
			return fmt.Errorf("BACKUP_SCHEDULE_TIME: %w", err)
		}
	}
	if c.Schedule.RetentionInterval < 0 {
		return fmt.Errorf("BACKUP_RETENTION_INTERVAL must be non-negative, got: %v", c.Schedule.RetentionInterval)
	}
	return nil
}

// EnsureBackupDir creates the backup directory and its metadata directory.
func (c *Config) EnsureBackupDir() error {
	if err := os.MkdirAll(filepath.Join(c.Dir, metaDirName), 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("time of day must be HH:MM, got: %q", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour must be 0-23, got: %q", h)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute must be 0-59, got: %q", m)
	}
	return hour, minute, nil
}
