// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package testinfra provides container helpers for integration tests.
//
// Everything here is built only with the integration tag:
//
//	go test -tags integration ./internal/database/postgres/...
//
// Tests call SkipIfNoDocker first so they skip cleanly on hosts without a
// Docker daemon. StartPostgres runs a throwaway PostgreSQL server through the
// testcontainers postgres module and returns its connection string.
package testinfra
