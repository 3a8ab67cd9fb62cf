// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package config provides centralized configuration management for Hardstore.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file (CONFIG_PATH, ./config.yaml or /etc/hardstore/config.yaml), then
environment variables. Only explicitly mapped environment variables are read.

# Environment Variables

HTTP Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development, staging, production

Database:
  - DATABASE_ENGINE: duckdb (default), postgres, sqlite
  - DATABASE_NAME: used in synthesized backup names (default: hardstore)
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
  - DATABASE_URL, DATABASE_MAX_CONNS, PG_DUMP_PATH, PG_RESTORE_PATH
  - SQLITE_PATH, SQLITE_BUSY_TIMEOUT

Backup:
  - BACKUP_DIR (default: /data/backups)
  - BACKUP_RETENTION_DAYS (default: 30)
  - BACKUP_SCHEDULE_ENABLED, BACKUP_SCHEDULE_TIME (default: 02:00), BACKUP_TIMEZONE
  - BACKUP_RETENTION_INTERVAL (default: 24h), BACKUP_MISSED_RUN_GRACE (default: 1h)
  - BACKUP_CREATE_TIMEOUT (5m), BACKUP_RESTORE_TIMEOUT (10m), BACKUP_VERIFY_TIMEOUT (2m)
  - BACKUP_VERIFY_BEFORE_RESTORE (true), BACKUP_PRE_RESTORE (false), BACKUP_PROCESS_LOCK (true)

Security:
  - CORS_ORIGINS: comma-separated list (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    return err
	}
	backupCfg, err := cfg.BackupSettings()

# Thread Safety

Config is immutable after Load and safe for concurrent reads.
*/
package config
