// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/hardstore/internal/metrics"
)

// ensureContext adds a 30-second timeout when ctx has no deadline
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return db.WithSession(ctx, func(ctx context.Context, conn *sql.DB) error {
		return checkpoint(ctx, conn)
	})
}

func checkpoint(ctx context.Context, conn *sql.DB) error {
	start := time.Now()
	_, err := conn.ExecContext(ctx, "CHECKPOINT")
	metrics.RecordDBQuery(engineName, "checkpoint", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// TableCounts returns the row count of every application table, keyed by
// table name.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

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

// quoteLiteral quotes s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent quotes s as a SQL identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
