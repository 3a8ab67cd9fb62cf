// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package database owns the DuckDB database behind Hardstore and implements the
backup engine for it.

The DB handle is created once by the server (or the operator CLI) and shared.
All access goes through WithSession, which holds a slot of a weighted gate
sized to the connection pool. A restore takes the whole gate, so it waits for
running sessions and no new session starts until the restored file has been
reopened.

# Backups

Engine.Backup attaches an empty database file and runs COPY FROM DATABASE
into it on a dedicated connection, then compresses the result with pgzip.
The live database stays online throughout.

Engine.Verify decompresses a backup into a temporary directory, checks the
DuckDB header magic, opens it read-only and checks that the Hardstore tables
exist and that its schema version is not newer than this build's.

Engine.Restore stages and inspects the backup next to the live file before
taking the gate, then swaps the files and reopens. Restored databases are
migrated to the current schema. When the swap fails the previous database
is reinstated.

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	engine := database.NewEngine(db, cfg.Database.Name)
	svc, err := backup.NewService(backupCfg, engine)

# Schema

See database_schema.go for tables and migrations.go for versioned
migrations. Migrations are append-only.
*/
package database
