// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package sqlite runs Hardstore on a single SQLite file.
//
// Backups are produced with VACUUM INTO, verified by opening the copy
// immutable and read-only and running PRAGMA integrity_check, and restored
// through the online backup API while every other session is held back.
package sqlite
