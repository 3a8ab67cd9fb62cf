// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
database_schema.go - Database Schema Management

Tables:
  - suppliers: vendors the store orders from
  - products: catalog of sellable items keyed by SKU
  - inventory: on-hand quantity per product and storage location
  - stock_movements: append-only ledger of receipts, sales and adjustments
  - schema_migrations: applied versioned migrations (see migrations.go)

Backups copy every table. Verification of a backup file requires
schema_migrations, which marks the file as a Hardstore database rather than
an arbitrary DuckDB file.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// coreTables lists the application tables in dependency order.
var coreTables = []string{"suppliers", "products", "inventory", "stock_movements"}

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// initialize creates tables, runs migrations and flushes the WAL.
func (db *DB) initialize() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	if err := db.runVersionedMigrations(ctx); err != nil {
		return err
	}

	for _, query := range indexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return checkpoint(ctx, db.conn)
}

func tableCreationQueries() []string {
	return []string{
		schemaMigrationsTable,

		`CREATE TABLE IF NOT EXISTS suppliers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			contact_email TEXT,
			phone TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS products (
			sku TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			supplier_id INTEGER,
			unit TEXT NOT NULL DEFAULT 'each',
			price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
			cost_cents BIGINT CHECK (cost_cents >= 0),
			reorder_level INTEGER NOT NULL DEFAULT 0,
			discontinued BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS inventory (
			sku TEXT NOT NULL,
			location TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (sku, location)
		);`,

		`CREATE SEQUENCE IF NOT EXISTS stock_movements_seq START 1;`,

		`CREATE TABLE IF NOT EXISTS stock_movements (
			id BIGINT PRIMARY KEY DEFAULT nextval('stock_movements_seq'),
			sku TEXT NOT NULL,
			location TEXT NOT NULL,
			delta INTEGER NOT NULL,
			reason TEXT NOT NULL,
			reference TEXT,
			occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
}

func indexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);`,
		`CREATE INDEX IF NOT EXISTS idx_products_supplier ON products(supplier_id);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_sku ON stock_movements(sku, occurred_at);`,
	}
}
