// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package backup manages the lifecycle of full database backups for Hardstore:
// creating them, cataloguing them, verifying their integrity, purging aged
// ones, and restoring the live database from them.
//
// # Overview
//
// The backup directory is the only persisted state. Every backup is one file
// in that directory and the catalog is re-derived from a directory listing;
// there is no index file that could drift from what is actually on disk.
// Per-backup sidecar metadata (origin, creation outcome, cached checksum,
// verification status) lives under the hidden .meta directory and never
// creates catalog entries on its own.
//
// # Architecture
//
//	OperationLock - admits at most one backup or restore at a time (no queueing)
//	Catalog       - filesystem-derived list of Entry values with a short-lived cache
//	Verifier      - read-only structural check of a backup file via the Engine
//	Retention     - age-based purge that never removes the newest restorable backup
//	Executor      - drives Engine.Backup and registers the resulting file
//	Orchestrator  - drives Engine.Restore with an explicit confirmation token
//	Scheduler     - one automatic backup per day, no catch-up after downtime
//	Service       - facade consumed by the HTTP layer and the operator CLI
//
// # Engines
//
// The package never talks to a database directly. The process injects a
// single Engine (DuckDB, PostgreSQL or SQLite, see internal/database) that
// owns the connection pool and implements the engine-level backup, verify and
// restore commands. Engines must honour context deadlines: timeouts are the
// only way an operation ends early.
//
// # Errors
//
// Failures are returned as *Error values carrying one of six kinds
// (NotFound, OperationInProgress, Timeout, ValidationFailed, EngineFailure,
// ManualInterventionRequired). Use KindOf or errors.Is with the Err* sentinels
// to branch on them.
//
// # Usage
//
//	svc, err := backup.NewService(cfg, engine)
//	if err != nil {
//		return err
//	}
//	entry, err := svc.CreateBackup(ctx, backup.CreateOptions{NameHint: "before-upgrade"})
//	if backup.KindOf(err) == backup.KindOperationInProgress {
//		// another backup or restore is running
//	}
package backup
