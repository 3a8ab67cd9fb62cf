// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package main is the Hardstore server.
//
// The server opens the configured database engine (DuckDB, PostgreSQL or
// SQLite), builds the backup service over it, and serves the backup REST API
// under a suture supervisor tree:
//
//	hardstore
//	├── backup-layer  scheduled backups and retention sweeps
//	├── events-layer  lifecycle event logging and history
//	└── api-layer     HTTP server
//
// # Configuration
//
// Settings come from built-in defaults, an optional config file
// (CONFIG_PATH, default config.yaml) and environment variables, highest
// last. The most common ones:
//
//	DATABASE_ENGINE          duckdb | postgres | sqlite
//	DUCKDB_PATH              DuckDB database file
//	DATABASE_URL             PostgreSQL connection string
//	SQLITE_PATH              SQLite database file
//	BACKUP_DIR               directory holding backup files
//	BACKUP_SCHEDULE_TIME     daily backup time, HH:MM
//	BACKUP_RETENTION_DAYS    age limit for retention sweeps
//	HTTP_PORT
//	LOG_LEVEL, LOG_FORMAT
//
// SIGINT and SIGTERM stop the tree. The HTTP server drains in-flight
// requests for HTTP_SHUTDOWN_TIMEOUT and the scheduler waits for a running
// retention sweep before the database is closed.
package main
