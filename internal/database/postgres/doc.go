// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package postgres runs Hardstore on PostgreSQL.
//
// DB wraps a pgxpool.Pool behind the same session gate as the DuckDB handle.
// Engine shells out to pg_dump and pg_restore: backups are custom-format
// archives, verification reads the archive's table of contents, and restore
// replays it with --clean in a single transaction after terminating other
// backends. Client tools run in their own process group, which is killed
// when the operation's context ends.
package postgres
