// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package config

import (
	"testing"
	"time"
)

func TestBackupSettings(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Backup.Dir = "/tmp/hardstore-backups"
	cfg.Backup.RetentionDays = 9
	cfg.Backup.ScheduleTime = "04:15"
	cfg.Backup.PreRestoreBackup = true

	bc, err := cfg.BackupSettings()
	if err != nil {
		t.Fatalf("BackupSettings() error = %v", err)
	}
	if bc.Dir != "/tmp/hardstore-backups" {
		t.Errorf("Dir = %q", bc.Dir)
	}
	if bc.RetentionDays != 9 {
		t.Errorf("RetentionDays = %d, want 9", bc.RetentionDays)
	}
	if bc.Schedule.TimeOfDay != "04:15" || !bc.Schedule.Enabled {
		t.Errorf("Schedule = %+v, want enabled at 04:15", bc.Schedule)
	}
	if bc.Schedule.Location != nil {
		t.Errorf("Schedule.Location = %v, want nil without BACKUP_TIMEZONE", bc.Schedule.Location)
	}
	if bc.RestoreTimeout != 10*time.Minute {
		t.Errorf("RestoreTimeout = %v, want 10m", bc.RestoreTimeout)
	}
	if !bc.PreRestoreBackup {
		t.Error("PreRestoreBackup should carry over")
	}
}

func TestBackupSettingsRejectsUnknownTimezone(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Backup.Timezone = "Mars/Olympus_Mons"
	if _, err := cfg.BackupSettings(); err == nil {
		t.Error("BackupSettings() should reject an unknown time zone")
	}
}

func TestValidateDatabaseEngines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*DatabaseConfig)
		wantErr bool
	}{
		{"duckdb default", func(*DatabaseConfig) {}, false},
		{"duckdb without path", func(d *DatabaseConfig) { d.Path = "" }, true},
		{"postgres", func(d *DatabaseConfig) {
			d.Engine = EnginePostgres
			d.URL = "postgres://hardstore@localhost/hardstore"
		}, false},
		{"postgres without conns", func(d *DatabaseConfig) {
			d.Engine = EnginePostgres
			d.URL = "postgres://hardstore@localhost/hardstore"
			d.MaxConns = 0
		}, true},
		{"sqlite", func(d *DatabaseConfig) { d.Engine = EngineSQLite }, false},
		{"sqlite without path", func(d *DatabaseConfig) {
			d.Engine = EngineSQLite
			d.SQLitePath = ""
		}, true},
		{"missing name", func(d *DatabaseConfig) { d.Name = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(&cfg.Database)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard CORS outside production should not warn")
	}

	cfg.Server.Environment = "production"
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard CORS in production should warn")
	}

	cfg.Security.CORSOrigins = []string{"https://store.example"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}
