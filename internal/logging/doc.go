// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package logging is the zerolog-based structured logging layer.
//
// The global logger is configured once from config.LoggingConfig:
//
//	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
//	logging.Info().Str("engine", "duckdb").Msg("Database opened")
//
// Request-scoped code logs through Ctx, which adds correlation_id and
// request_id when the context carries them. The HTTP middleware sets both;
// the backup service copies the correlation id onto the lifecycle events it
// publishes, so a restore request, its log lines and its RESTORE_SUCCEEDED
// event share one id.
//
// OperationLogger tags entries with component=backup and has one method per
// lifecycle milestone. LogManualIntervention writes alert=true so log-based
// alerting can page on a restore that left the database in an unknown state.
//
// SlogHandler bridges slog-only libraries (suture via sutureslog, watermill)
// onto the same zerolog output.
package logging
