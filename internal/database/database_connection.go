// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
database_connection.go - Connection Management

This file builds DuckDB connection strings and configures the pool.

Connection Pool Configuration:
  - MaxOpenConns: one per session slot (DUCKDB_THREADS or NumCPU)
  - MaxIdleConns: 2 for efficient connection reuse
  - ConnMaxLifetime: 1 hour to prevent stale connections
  - ConnMaxIdleTime: 5 minutes for idle connection cleanup

Read-only Opens:
Backup verification and restore staging open candidate files with
access_mode=read_only so a damaged or foreign file is never written to.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/hardstore/internal/config"
)

const engineName = "duckdb"

// connString builds the read-write connection string for the live database.
// Auto-install/auto-load are disabled to prevent hangs in restricted networks.
func connString(cfg *config.DatabaseConfig) string {
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}
	return fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, maxOpenConns(cfg), maxMemory)
}

// open opens and pings a new pool for the configured file.
func (db *DB) open() (*sql.DB, error) {
	conn, err := sql.Open("duckdb", connString(db.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	configureConnectionPool(conn, maxOpenConns(db.cfg))
	return conn, nil
}

// configureConnectionPool sets connection pool parameters
func configureConnectionPool(conn *sql.DB, maxOpen int) {
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)
}

// openReadOnly opens a database file without permitting writes.
func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", path+"?access_mode=read_only&autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("failed to open database read-only: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to open database read-only: %w", err)
	}
	return conn, nil
}
