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
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

const snapshotAlias = "hardstore_snapshot"

// Engine backs up and restores a DuckDB database. It implements
// backup.Engine.
type Engine struct {
	db   *DB
	name string
}

// NewEngine returns the backup engine for db. name is used when
// synthesizing backup file names.
func NewEngine(db *DB, name string) *Engine {
	return &Engine{db: db, name: name}
}

// Name returns the database name.
func (e *Engine) Name() string {
	return e.name
}

// Backup copies the live database into a standalone snapshot with
// COPY FROM DATABASE and writes it compressed to destPath. Other sessions
// keep running while the copy is taken.
func (e *Engine) Backup(ctx context.Context, destPath string) error {
	stage, err := os.MkdirTemp(filepath.Dir(destPath), ".snapshot-")
	if err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	defer removeWithLog(stage)

	snapshot := filepath.Join(stage, "snapshot.duckdb")
	err = e.db.WithSession(ctx, func(ctx context.Context, pool *sql.DB) error {
		return copyDatabase(ctx, pool, snapshot)
	})
	if err != nil {
		return err
	}

	start := time.Now()
	err = compressFile(ctx, snapshot, destPath)
	metrics.RecordDBQuery(engineName, "compress", time.Since(start), err)
	return err
}

// copyDatabase snapshots the live database into a new file at target.
func copyDatabase(ctx context.Context, pool *sql.DB, target string) error {
	conn, err := pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer closeWithLog(conn, "snapshot connection")

	exec := func(op, query string) error {
		start := time.Now()
		_, err := conn.ExecContext(ctx, query)
		metrics.RecordDBQuery(engineName, op, time.Since(start), err)
		return err
	}

	if err := exec("checkpoint", "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}

	var current string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&current); err != nil {
		return fmt.Errorf("failed to resolve database name: %w", err)
	}

	if err := exec("attach", fmt.Sprintf("ATTACH %s AS %s", quoteLiteral(target), snapshotAlias)); err != nil {
		return fmt.Errorf("failed to attach snapshot: %w", err)
	}
	defer func() {
		// Detach even when ctx has expired so the connection is reusable.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(dctx, "DETACH "+snapshotAlias); err != nil {
			logging.Warn().Err(err).Msg("Failed to detach snapshot database")
		}
	}()

	if err := exec("copy_database", fmt.Sprintf("COPY FROM DATABASE %s TO %s", quoteIdent(current), snapshotAlias)); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}
	return nil
}

// Verify decompresses the backup into a temporary directory and checks that
// it is a Hardstore DuckDB database this build can restore.
func (e *Engine) Verify(ctx context.Context, path string) error {
	stage, err := os.MkdirTemp("", "hardstore-verify-")
	if err != nil {
		return fmt.Errorf("failed to create verification directory: %w", err)
	}
	defer removeWithLog(stage)

	candidate := filepath.Join(stage, "verify.duckdb")
	if err := decompressFile(ctx, path, candidate); err != nil {
		return err
	}
	return inspect(ctx, candidate)
}

// inspect opens a candidate database read-only and checks its schema.
func inspect(ctx context.Context, path string) error {
	if err := checkMagic(path); err != nil {
		return err
	}

	conn, err := openReadOnly(ctx, path)
	if err != nil {
		return err
	}
	defer closeWithLog(conn, "verification database")

	start := time.Now()
	err = checkSchema(ctx, conn)
	metrics.RecordDBQuery(engineName, "verify", time.Since(start), err)
	return err
}

func checkSchema(ctx context.Context, conn *sql.DB) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT table_name FROM duckdb_tables() WHERE database_name = current_database()`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			closeQuietly(rows)
			return fmt.Errorf("failed to list tables: %w", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return fmt.Errorf("failed to list tables: %w", err)
	}
	closeQuietly(rows)

	if !tables["schema_migrations"] {
		return errors.New("backup does not contain a Hardstore schema")
	}
	for _, table := range coreTables {
		if !tables[table] {
			return fmt.Errorf("backup is missing table %s", table)
		}
	}

	var version int
	if err := conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if latest := latestMigration(); version > latest {
		return fmt.Errorf("backup schema version %d is newer than supported version %d", version, latest)
	}

	if _, err := tableCounts(ctx, conn); err != nil {
		return err
	}
	return nil
}

// Restore replaces the live database with the backup at srcPath.
//
// The backup is decompressed and inspected next to the live file first. Only
// then does the engine take every session slot, close the pool, move the live
// file aside, move the snapshot into place and reopen. If the restored file
// cannot be opened and migrated, the previous database is put back.
func (e *Engine) Restore(ctx context.Context, srcPath string) error {
	live := e.db.Path()
	stage, err := os.MkdirTemp(filepath.Dir(live), ".restore-")
	if err != nil {
		return fmt.Errorf("failed to create restore staging directory: %w", err)
	}
	defer removeWithLog(stage)

	staged := filepath.Join(stage, filepath.Base(live))
	if err := decompressFile(ctx, srcPath, staged); err != nil {
		return err
	}
	if err := inspect(ctx, staged); err != nil {
		return fmt.Errorf("backup failed validation: %w", err)
	}

	start := time.Now()
	err = e.db.exclusive(ctx, func() error {
		return e.db.swap(staged)
	})
	metrics.RecordDBQuery(engineName, "restore", time.Since(start), err)
	if err != nil {
		return err
	}

	logging.Info().Str("path", live).Dur("duration", time.Since(start)).Msg("DuckDB database restored")
	return nil
}

// swap replaces the live file with staged. The caller holds db.mu and every
// session slot.
func (db *DB) swap(staged string) error {
	live := db.cfg.Path
	previous := live + ".previous"

	ctx, cancel := schemaContext()
	defer cancel()
	if err := checkpoint(ctx, db.conn); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint before restore")
	}
	if err := db.conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database before restore")
	}
	db.conn = nil

	removeWithLog(previous)
	removeWithLog(previous + ".wal")
	if err := moveIfExists(live, previous); err != nil {
		return db.reinstate(previous, fmt.Errorf("failed to move live database aside: %w", err))
	}
	if err := moveIfExists(live+".wal", previous+".wal"); err != nil {
		return db.reinstate(previous, fmt.Errorf("failed to move live WAL aside: %w", err))
	}
	if err := os.Rename(staged, live); err != nil {
		return db.reinstate(previous, fmt.Errorf("failed to move restored database into place: %w", err))
	}

	conn, err := db.open()
	if err != nil {
		return db.reinstate(previous, fmt.Errorf("restored database failed to open: %w", err))
	}
	db.conn = conn

	// Older backups are brought up to the current schema.
	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		db.conn = nil
		return db.reinstate(previous, fmt.Errorf("restored database failed to migrate: %w", err))
	}

	removeWithLog(previous)
	removeWithLog(previous + ".wal")
	return nil
}

// reinstate puts the previous database back after a failed swap and reopens
// it. cause is returned, annotated when the previous database could not be
// reopened either.
func (db *DB) reinstate(previous string, cause error) error {
	live := db.cfg.Path
	if _, err := os.Stat(previous); err == nil {
		removeWithLog(live)
		removeWithLog(live + ".wal")
		if err := os.Rename(previous, live); err != nil {
			logging.Error().Err(err).Str("path", live).Msg("Failed to reinstate previous database")
			return fmt.Errorf("%w (previous database left at %s)", cause, previous)
		}
		if err := moveIfExists(previous+".wal", live+".wal"); err != nil {
			logging.Warn().Err(err).Msg("Failed to reinstate previous WAL")
		}
	}

	conn, err := db.open()
	if err != nil {
		logging.Error().Err(err).Str("path", live).Msg("Database unavailable after failed restore")
		return fmt.Errorf("%w (database unavailable: %v)", cause, err)
	}
	db.conn = conn
	logging.Warn().Err(cause).Msg("Restore rolled back to previous database")
	return cause
}

func moveIfExists(from, to string) error {
	err := os.Rename(from, to)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
