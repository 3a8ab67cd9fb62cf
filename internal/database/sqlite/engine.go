// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// restoreStepPages is how many pages the online backup copies between
// context checks.
const restoreStepPages = 256

var headerMagic = []byte("SQLite format 3\x00")

// Engine backs up and restores the SQLite database. It implements
// backup.Engine.
type Engine struct {
	db   *DB
	name string
}

// NewEngine returns the backup engine for db.
func NewEngine(db *DB, name string) *Engine {
	return &Engine{db: db, name: name}
}

// Name returns the database name.
func (e *Engine) Name() string {
	return e.name
}

// Backup writes a compacted, consistent copy of the live database to destPath
// with VACUUM INTO.
func (e *Engine) Backup(ctx context.Context, destPath string) error {
	return e.db.WithSession(ctx, func(ctx context.Context, conn *sql.DB) error {
		start := time.Now()
		_, err := conn.ExecContext(ctx, "VACUUM INTO ?", destPath)
		metrics.RecordDBQuery(engineName, "vacuum_into", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("VACUUM INTO failed: %w", err)
		}
		return nil
	})
}

// Verify opens the file read-only, runs an integrity check and requires every
// application table.
func (e *Engine) Verify(ctx context.Context, path string) error {
	return inspect(ctx, path)
}

func inspect(ctx context.Context, path string) error {
	if err := checkMagic(path); err != nil {
		return err
	}

	conn, err := sql.Open(driverName, readOnlyDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open backup read-only: %w", err)
	}
	defer conn.Close()

	if err := integrityCheck(ctx, conn); err != nil {
		return err
	}
	if err := checkSchema(ctx, conn); err != nil {
		return err
	}
	_, err = tableCounts(ctx, conn)
	return err
}

func checkMagic(path string) error {
	f, err := os.Open(path) //nolint:gosec // path resolved by the backup catalog
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(headerMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, headerMagic) {
		return errors.New("not an SQLite database file")
	}
	return nil
}

func integrityCheck(ctx context.Context, conn *sql.DB) error {
	rows, err := conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("integrity check failed: %w", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func checkSchema(ctx context.Context, conn *sql.DB) error {
	rows, err := conn.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return fmt.Errorf("failed to read backup schema: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to read backup schema: %w", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read backup schema: %w", err)
	}

	if len(tables) == 0 {
		return errors.New("backup does not contain a Hardstore schema")
	}
	for _, table := range coreTables {
		if !tables[table] {
			return fmt.Errorf("backup is missing table %s", table)
		}
	}
	return nil
}

// Restore copies the backup over the live database with the SQLite online
// backup API. Pages are written inside one transaction on the live file, so a
// cancelled or failed copy leaves the live database unchanged.
func (e *Engine) Restore(ctx context.Context, srcPath string) error {
	if err := inspect(ctx, srcPath); err != nil {
		return fmt.Errorf("backup failed validation: %w", err)
	}

	src, err := sql.Open(driverName, readOnlyDSN(srcPath))
	if err != nil {
		return fmt.Errorf("failed to open backup read-only: %w", err)
	}
	defer src.Close()

	start := time.Now()
	err = e.db.exclusive(ctx, func() error {
		if err := copyDatabase(ctx, e.db.conn, src); err != nil {
			return err
		}
		if err := e.db.initialize(ctx); err != nil {
			return fmt.Errorf("failed to migrate restored database: %w", err)
		}
		_, err := e.db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
		return err
	})
	metrics.RecordDBQuery(engineName, "restore", time.Since(start), err)
	if err != nil {
		return err
	}

	logging.Info().
		Str("path", e.db.Path()).
		Dur("duration", time.Since(start)).
		Msg("SQLite database restored")
	return nil
}

func copyDatabase(ctx context.Context, live, src *sql.DB) error {
	destConn, err := live.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire live connection: %w", err)
	}
	defer destConn.Close()

	srcConn, err := src.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open backup connection: %w", err)
	}
	defer srcConn.Close()

	return destConn.Raw(func(d any) error {
		dest, ok := d.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", d)
		}
		return srcConn.Raw(func(s any) error {
			source, ok := s.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", s)
			}
			return stepBackup(ctx, dest, source)
		})
	})
}

func stepBackup(ctx context.Context, dest, src *sqlite3.SQLiteConn) error {
	b, err := dest.Backup("main", src, "main")
	if err != nil {
		return fmt.Errorf("failed to start online backup: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			_ = b.Finish()
			return fmt.Errorf("restore interrupted: %w", err)
		}
		done, err := b.Step(restoreStepPages)
		if err != nil {
			_ = b.Finish()
			return fmt.Errorf("online backup step failed: %w", err)
		}
		if done {
			return b.Finish()
		}
	}
}
