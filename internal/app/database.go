// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package app

import (
	"context"
	"fmt"

	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/database"
	"github.com/tomtom215/hardstore/internal/database/postgres"
	"github.com/tomtom215/hardstore/internal/database/sqlite"
	"github.com/tomtom215/hardstore/internal/logging"
)

// store is what every engine's DB handle offers.
type store interface {
	Ping(ctx context.Context) error
	Close() error
}

// Database is an open live database together with its backup engine.
type Database struct {
	Engine backup.Engine
	store  store
	kind   string
}

// OpenDatabase opens the engine selected by cfg.Engine.
func OpenDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*Database, error) {
	name := cfg.Name
	if name == "" {
		name = "hardstore"
	}

	switch cfg.Engine {
	case config.EngineDuckDB, "":
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		return &Database{Engine: database.NewEngine(db, name), store: db, kind: config.EngineDuckDB}, nil

	case config.EnginePostgres:
		db, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Database{Engine: postgres.NewEngine(db, name), store: db, kind: config.EnginePostgres}, nil

	case config.EngineSQLite:
		db, err := sqlite.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Database{Engine: sqlite.NewEngine(db, name), store: db, kind: config.EngineSQLite}, nil

	default:
		return nil, fmt.Errorf("unsupported database engine %q", cfg.Engine)
	}
}

// Kind returns the engine identifier, e.g. "sqlite".
func (d *Database) Kind() string {
	return d.kind
}

// Ping checks the live connection.
func (d *Database) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}

// Close closes the live connection, logging rather than returning the error.
func (d *Database) Close() {
	if err := d.store.Close(); err != nil {
		logging.Error().Err(err).Str("engine", d.kind).Msg("Error closing database")
	}
}
