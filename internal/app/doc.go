// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package app holds the wiring shared by the hardstore server and the
// backupctl command: opening the configured database engine.
package app
