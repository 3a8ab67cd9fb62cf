// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

const (
	engineName  = "sqlite"
	driverName  = "sqlite3"
	maxSessions = 4
)

// ErrClosed is returned by operations on a closed handle.
var ErrClosed = errors.New("database is closed")

// DB owns the process-wide SQLite connection pool.
//
// Sessions hold one slot of a gate sized to the pool; restore holds all of
// them while the online backup API rewrites the live file.
type DB struct {
	cfg  *config.DatabaseConfig
	conn *sql.DB

	gate *semaphore.Weighted

	mu     sync.Mutex
	closed bool
}

// New opens (or creates) the SQLite database file and applies the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.SQLitePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open(driverName, liveDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	conn.SetMaxOpenConns(maxSessions)
	conn.SetMaxIdleConns(maxSessions)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	db := &DB{
		cfg:  cfg,
		conn: conn,
		gate: semaphore.NewWeighted(maxSessions),
	}
	if err := db.initialize(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	version, _, _ := sqlite3.Version()
	logging.Info().
		Str("path", cfg.SQLitePath).
		Str("sqlite_version", version).
		Msg("SQLite database opened")
	return db, nil
}

func liveDSN(cfg *config.DatabaseConfig) string {
	busy := cfg.SQLiteBusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(busy.Milliseconds()))
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	return "file:" + cfg.SQLitePath + "?" + q.Encode()
}

// readOnlyDSN opens path without writing to it or creating -wal/-shm files.
func readOnlyDSN(path string) string {
	return "file:" + path + "?mode=ro&immutable=1"
}

// Path returns the live database file.
func (db *DB) Path() string {
	return db.cfg.SQLitePath
}

// WithSession runs fn on the pool while holding one session slot.
func (db *DB) WithSession(ctx context.Context, fn func(ctx context.Context, conn *sql.DB) error) error {
	if err := db.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for database session: %w", err)
	}
	defer db.gate.Release(1)

	if db.isClosed() {
		return ErrClosed
	}
	return fn(ctx, db.conn)
}

// exclusive runs fn with every session slot held.
func (db *DB) exclusive(ctx context.Context, fn func() error) error {
	if err := db.gate.Acquire(ctx, maxSessions); err != nil {
		return fmt.Errorf("waiting for exclusive database access: %w", err)
	}
	defer db.gate.Release(maxSessions)

	if db.isClosed() {
		return ErrClosed
	}
	return fn()
}

// Ping checks that the database answers queries.
func (db *DB) Ping(ctx context.Context) error {
	return db.WithSession(ctx, func(ctx context.Context, conn *sql.DB) error {
		start := time.Now()
		err := conn.PingContext(ctx)
		metrics.RecordDBQuery(engineName, "ping", time.Since(start), err)
		return err
	})
}

// Close waits for running sessions and closes the pool. It is safe to call
// more than once.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.gate.Acquire(ctx, maxSessions); err == nil {
		defer db.gate.Release(maxSessions)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.conn.Close()
}

func (db *DB) isClosed() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closed
}

// TableCounts returns the row count of every application table.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	var counts map[string]int64
	err := db.WithSession(ctx, func(ctx context.Context, conn *sql.DB) error {
		var err error
		counts, err = tableCounts(ctx, conn)
		return err
	})
	return counts, err
}

func tableCounts(ctx context.Context, conn *sql.DB) (map[string]int64, error) {
	counts := make(map[string]int64, len(coreTables))
	for _, table := range coreTables {
		var n int64
		// Table names come from the fixed coreTables list.
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// coreTables lists the application tables in dependency order.
var coreTables = []string{"suppliers", "products", "inventory", "stock_movements"}

func (db *DB) initialize(ctx context.Context) error {
	for _, query := range schemaQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		contact_email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		sku TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		supplier_id INTEGER REFERENCES suppliers(id),
		unit TEXT NOT NULL DEFAULT 'each',
		price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
		cost_cents INTEGER CHECK (cost_cents >= 0),
		reorder_level INTEGER NOT NULL DEFAULT 0,
		barcode TEXT,
		discontinued INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		sku TEXT NOT NULL REFERENCES products(sku),
		location TEXT NOT NULL,
		bin TEXT,
		quantity INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (sku, location)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sku TEXT NOT NULL,
		location TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		reference TEXT,
		occurred_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_sku ON stock_movements(sku, occurred_at)`,
}
