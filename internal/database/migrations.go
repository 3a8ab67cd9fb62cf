// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
)

// Migration represents a versioned database migration.
type Migration struct {
	Version     int       // Unique version number (monotonically increasing)
	Name        string    // Human-readable migration name
	Description string    // Description of what this migration does
	SQL         string    // SQL statement to execute
	AppliedAt   time.Time // When the migration was applied (populated on query)
}

// schemaMigrationsTable creates the migration tracking table
const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrations returns all versioned migrations in order.
//
// Migrations MUST be append-only. Never modify or remove one once databases
// (and their backups) carry it.
func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "product_barcode",
			Description: "Add barcode column for scanner lookups",
			SQL:         `ALTER TABLE products ADD COLUMN IF NOT EXISTS barcode TEXT;`,
		},
		{
			Version:     2,
			Name:        "inventory_bin",
			Description: "Add aisle/bin label to inventory locations",
			SQL:         `ALTER TABLE inventory ADD COLUMN IF NOT EXISTS bin TEXT;`,
		},
	}
}

// getAppliedMigrations returns a map of version -> Migration for all applied migrations
func getAppliedMigrations(ctx context.Context, conn *sql.DB) (map[int]Migration, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		var desc sql.NullString
		if err := rows.Scan(&m.Version, &m.Name, &desc, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		m.Description = desc.String
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// runVersionedMigrations executes only new migrations that haven't been applied yet.
func (db *DB) runVersionedMigrations(ctx context.Context) error {
	applied, err := getAppliedMigrations(ctx, db.conn)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range migrations() {
		if _, exists := applied[m.Version]; exists {
			continue
		}

		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}

		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description)
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}

		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var version int
	err := db.WithSession(ctx, func(ctx context.Context, conn *sql.DB) error {
		return conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// latestMigration is the version a fully migrated database reports.
func latestMigration() int {
	latest := 0
	for _, m := range migrations() {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}
