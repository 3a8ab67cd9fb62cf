// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

const engineName = "postgres"

// ErrClosed is returned by operations on a closed handle.
var ErrClosed = errors.New("database is closed")

// DB owns the process-wide pgx pool.
//
// Sessions hold one slot of a gate sized to the pool. A restore holds all of
// them while pg_restore runs.
type DB struct {
	cfg  *config.DatabaseConfig
	pool *pgxpool.Pool

	gate     *semaphore.Weighted
	sessions int64

	mu     sync.Mutex
	closed bool
}

// New connects to PostgreSQL and creates the schema.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sessions := int64(poolCfg.MaxConns)
	db := &DB{
		cfg:      cfg,
		pool:     pool,
		gate:     semaphore.NewWeighted(sessions),
		sessions: sessions,
	}

	if err := db.initialize(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("PostgreSQL connection pool established")
	return db, nil
}

// WithSession runs fn on the pool while holding one session slot.
func (db *DB) WithSession(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	if err := db.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for database session: %w", err)
	}
	defer db.gate.Release(1)

	if db.isClosed() {
		return ErrClosed
	}
	return fn(ctx, db.pool)
}

// exclusive runs fn with every session slot held.
func (db *DB) exclusive(ctx context.Context, fn func() error) error {
	if err := db.gate.Acquire(ctx, db.sessions); err != nil {
		return fmt.Errorf("waiting for exclusive database access: %w", err)
	}
	defer db.gate.Release(db.sessions)

	if db.isClosed() {
		return ErrClosed
	}
	return fn()
}

// Ping checks that PostgreSQL is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.WithSession(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		start := time.Now()
		err := pool.Ping(ctx)
		metrics.RecordDBQuery(engineName, "ping", time.Since(start), err)
		return err
	})
}

// Close closes the pool. It is safe to call more than once.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.pool.Close()
	return nil
}

func (db *DB) isClosed() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closed
}

// TableCounts returns the row count of every application table.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(coreTables))
	err := db.WithSession(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		for _, table := range coreTables {
			var n int64
			// Table names come from the fixed coreTables list.
			if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
				return fmt.Errorf("failed to count %s: %w", table, err)
			}
			counts[table] = n
		}
		return nil
	})
	return counts, err
}

// coreTables lists the application tables in dependency order.
var coreTables = []string{"suppliers", "products", "inventory", "stock_movements"}

func (db *DB) initialize(ctx context.Context) error {
	for _, query := range schemaQueries {
		if _, err := db.pool.Exec(ctx, query); err != nil {
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
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		sku TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		supplier_id INTEGER REFERENCES suppliers(id),
		unit TEXT NOT NULL DEFAULT 'each',
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		cost_cents BIGINT CHECK (cost_cents >= 0),
		reorder_level INTEGER NOT NULL DEFAULT 0,
		barcode TEXT,
		discontinued BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		sku TEXT NOT NULL REFERENCES products(sku),
		location TEXT NOT NULL,
		bin TEXT,
		quantity INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (sku, location)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id BIGSERIAL PRIMARY KEY,
		sku TEXT NOT NULL,
		location TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		reference TEXT,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_sku ON stock_movements(sku, occurred_at)`,
}
