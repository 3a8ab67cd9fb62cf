// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// dumpMagic starts every pg_dump custom-format archive.
var dumpMagic = []byte("PGDMP")

// Engine backs up and restores a PostgreSQL database with the client tools.
// It implements backup.Engine.
type Engine struct {
	db          *DB
	name        string
	dsn         string
	dumpPath    string
	restorePath string
	command     commandFunc
}

// NewEngine returns the backup engine for db. Empty tool paths resolve
// pg_dump and pg_restore from PATH.
func NewEngine(db *DB, name string) *Engine {
	dumpPath := db.cfg.PgDumpPath
	if dumpPath == "" {
		dumpPath = "pg_dump"
	}
	restorePath := db.cfg.PgRestorePath
	if restorePath == "" {
		restorePath = "pg_restore"
	}
	return &Engine{
		db:          db,
		name:        name,
		dsn:         db.cfg.URL,
		dumpPath:    dumpPath,
		restorePath: restorePath,
		command:     exec.CommandContext,
	}
}

// Name returns the database name.
func (e *Engine) Name() string {
	return e.name
}

// Backup writes a custom-format pg_dump archive to destPath.
func (e *Engine) Backup(ctx context.Context, destPath string) error {
	return e.db.WithSession(ctx, func(ctx context.Context, _ *pgxpool.Pool) error {
		_, err := run(ctx, e.command, "pg_dump", e.dumpPath,
			"--format=custom",
			"--no-owner",
			"--no-privileges",
			"--file="+destPath,
			"--dbname="+e.dsn,
		)
		return err
	})
}

// Verify checks the archive header and asks pg_restore to read its table
// of contents, which must list every application table.
func (e *Engine) Verify(ctx context.Context, path string) error {
	if err := checkMagic(path); err != nil {
		return err
	}

	toc, err := run(ctx, e.command, "pg_restore_list", e.restorePath, "--list", path)
	if err != nil {
		return err
	}
	return checkTOC(toc)
}

func checkTOC(toc string) error {
	listed := make(map[string]bool)
	for _, line := range strings.Split(toc, "\n") {
		if strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		for i := 0; i+2 < len(fields); i++ {
			if fields[i] == "TABLE" && fields[i+1] == "public" {
				listed[fields[i+2]] = true
			}
		}
	}
	if len(listed) == 0 {
		return errors.New("archive lists no tables")
	}
	for _, table := range coreTables {
		if !listed[table] {
			return fmt.Errorf("archive is missing table %s", table)
		}
	}
	return nil
}

// Restore replays the archive into the live database in a single
// transaction. Other sessions are held back by the gate and existing backend
// connections are terminated first; a failed restore rolls back completely.
func (e *Engine) Restore(ctx context.Context, srcPath string) error {
	if err := checkMagic(srcPath); err != nil {
		return err
	}

	start := time.Now()
	err := e.db.exclusive(ctx, func() error {
		e.terminateSessions(ctx)

		_, err := run(ctx, e.command, "pg_restore", e.restorePath,
			"--clean",
			"--if-exists",
			"--no-owner",
			"--no-privileges",
			"--exit-on-error",
			"--single-transaction",
			"--dbname="+e.dsn,
			srcPath,
		)
		// Pooled connections were terminated or hold stale catalog caches.
		e.db.pool.Reset()
		if err != nil {
			return err
		}
		return e.db.pool.Ping(ctx)
	})
	if err != nil {
		return err
	}

	logging.Info().Dur("duration", time.Since(start)).Msg("PostgreSQL database restored")
	return nil
}

// terminateSessions disconnects every other backend of the database.
func (e *Engine) terminateSessions(ctx context.Context) {
	start := time.Now()
	var terminated int
	err := e.db.pool.QueryRow(ctx, `
		SELECT count(pg_terminate_backend(pid))
		FROM pg_stat_activity
		WHERE datname = current_database() AND pid <> pg_backend_pid()`).Scan(&terminated)
	metrics.RecordDBQuery(engineName, "terminate_sessions", time.Since(start), err)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to terminate database sessions before restore")
		return
	}
	if terminated > 0 {
		logging.Info().Int("sessions", terminated).Msg("Terminated database sessions before restore")
	}
}

// checkMagic reports whether path is a pg_dump custom-format archive.
func checkMagic(path string) error {
	f, err := os.Open(path) //nolint:gosec // path resolved by the backup catalog
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(dumpMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, dumpMagic) {
		return errors.New("not a pg_dump custom-format archive")
	}
	return nil
}
