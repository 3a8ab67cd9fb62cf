// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// ErrClosed is returned by operations on a closed handle.
var ErrClosed = errors.New("database is closed")

// DB wraps the DuckDB connection pool that the rest of the process shares.
//
// Every session runs under a weighted gate. Ordinary sessions take a single
// slot; a restore takes all of them, which waits for in-flight sessions to
// finish and holds new ones back until the database file has been swapped
// and reopened.
type DB struct {
	cfg *config.DatabaseConfig

	mu     sync.RWMutex // guards conn
	conn   *sql.DB
	closed bool

	gate     *semaphore.Weighted
	sessions int64
}

// New opens (or creates) the DuckDB database file and applies the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	sessions := int64(maxOpenConns(cfg))
	db := &DB{
		cfg:      cfg,
		gate:     semaphore.NewWeighted(sessions),
		sessions: sessions,
	}

	conn, err := db.open()
	if err != nil {
		return nil, err
	}
	db.conn = conn

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int64("sessions", sessions).
		Msg("DuckDB database opened")
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// WithSession runs fn on the shared pool while holding one session slot.
// It waits for a running restore to finish first.
func (db *DB) WithSession(ctx context.Context, fn func(ctx context.Context, conn *sql.DB) error) error {
	if err := db.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for database session: %w", err)
	}
	defer db.gate.Release(1)

	db.mu.RLock()
	conn, closed := db.conn, db.closed
	db.mu.RUnlock()
	if closed || conn == nil {
		return ErrClosed
	}
	return fn(ctx, conn)
}

// exclusive runs fn with every session slot held. fn may replace the
// connection pool.
func (db *DB) exclusive(ctx context.Context, fn func() error) error {
	if err := db.gate.Acquire(ctx, db.sessions); err != nil {
		return fmt.Errorf("waiting for exclusive database access: %w", err)
	}
	defer db.gate.Release(db.sessions)

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return fn()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.WithSession(ctx, func(ctx context.Context, conn *sql.DB) error {
		start := time.Now()
		err := conn.PingContext(ctx)
		metrics.RecordDBQuery(engineName, "ping", time.Since(start), err)
		return err
	})
}

// Close checkpoints the WAL into the database file and closes the pool.
// It waits for in-flight sessions, including a running restore.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.gate.Acquire(ctx, db.sessions); err != nil {
		return fmt.Errorf("waiting for sessions before close: %w", err)
	}
	defer db.gate.Release(db.sessions)

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	if db.conn == nil {
		return nil
	}
	// Flush the WAL so the next open does not need to replay it.
	if err := checkpoint(ctx, db.conn); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

func maxOpenConns(cfg *config.DatabaseConfig) int {
	if cfg.Threads > 0 {
		return cfg.Threads
	}
	return runtime.NumCPU()
}
