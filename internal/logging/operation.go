// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// OperationLogger provides specialized logging for backup and restore
// operations and the lifecycle event bus that reports on them.
type OperationLogger struct {
	logger zerolog.Logger
}

// NewOperationLogger creates a logger tagged with component=backup.
func NewOperationLogger() *OperationLogger {
	return &OperationLogger{
		logger: With().Str("component", "backup").Logger(),
	}
}

// NewOperationLoggerWithLogger creates an OperationLogger with a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value (copy-on-write semantics)
func NewOperationLoggerWithLogger(logger zerolog.Logger) *OperationLogger {
	return &OperationLogger{
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Info logs an info message.
func (o *OperationLogger) Info(msg string, fields ...interface{}) {
	event := o.logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Warn logs a warning message.
func (o *OperationLogger) Warn(msg string, fields ...interface{}) {
	event := o.logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// InfoContext logs an info message with context.
func (o *OperationLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := o.loggerWithContext(ctx)
	event := logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// WarnContext logs a warning message with context.
func (o *OperationLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := o.loggerWithContext(ctx)
	event := logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// loggerWithContext returns a logger with context fields added.
func (o *OperationLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	return withContextFields(ctx, o.logger.With()).Logger()
}

// addFieldPairs adds key-value pairs to a zerolog event.
func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			e = e.Interface(key, fields[i+1])
		}
	}
	return e
}

// ============================================================
// Backup and Restore Operations
// ============================================================

// LogOperationStarted logs the admission of a backup or restore.
func (o *OperationLogger) LogOperationStarted(ctx context.Context, kind, operationID, fileName string) {
	o.InfoContext(ctx, "operation started",
		"operation", kind,
		"operation_id", operationID,
		"file", fileName,
	)
}

// LogOperationSucceeded logs a completed backup or restore.
func (o *OperationLogger) LogOperationSucceeded(ctx context.Context, kind, operationID, fileName string, duration time.Duration) {
	o.InfoContext(ctx, "operation succeeded",
		"operation", kind,
		"operation_id", operationID,
		"file", fileName,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogOperationFailed logs a failed backup or restore.
func (o *OperationLogger) LogOperationFailed(ctx context.Context, kind, operationID, fileName, errorKind string, err error) {
	logger := o.loggerWithContext(ctx)
	logger.Error().
		Str("operation", kind).
		Str("operation_id", operationID).
		Str("file", fileName).
		Str("error_kind", errorKind).
		Err(err).
		Msg("operation failed")
}

// LogManualIntervention logs a restore that left the database in an unknown
// state. It is emitted at error level with alert=true so log-based alerting
// can page on it.
func (o *OperationLogger) LogManualIntervention(ctx context.Context, operationID, fileName string, err error) {
	logger := o.loggerWithContext(ctx)
	logger.Error().
		Bool("alert", true).
		Str("operation", "RESTORE").
		Str("operation_id", operationID).
		Str("file", fileName).
		Err(err).
		Msg("manual intervention required: database state unknown after restore timeout")
}

// LogScheduledRunSkipped logs a scheduled backup that did not run.
func (o *OperationLogger) LogScheduledRunSkipped(scheduledFor time.Time, reason string) {
	o.Warn("scheduled backup skipped",
		"scheduled_for", scheduledFor,
		"reason", reason,
	)
}

// LogNextScheduledRun logs the next planned scheduled backup.
func (o *OperationLogger) LogNextScheduledRun(next time.Time) {
	o.Info("next scheduled backup",
		"next_run", next,
	)
}

// LogRetentionCompleted logs the outcome of a retention purge.
func (o *OperationLogger) LogRetentionCompleted(ctx context.Context, days, deleted, kept, failed int) {
	o.InfoContext(ctx, "retention purge completed",
		"days", days,
		"deleted", deleted,
		"kept", kept,
		"failed", failed,
	)
}

// ============================================================
// Lifecycle Event Bus
// ============================================================

// LogEventPublished logs when a lifecycle event is published.
func (o *OperationLogger) LogEventPublished(ctx context.Context, eventID, topic string) {
	logger := o.loggerWithContext(ctx)
	logger.Debug().
		Str("event_id", eventID).
		Str("topic", topic).
		Msg("event published")
}

// LogEventDropped logs a lifecycle event that could not be published.
func (o *OperationLogger) LogEventDropped(ctx context.Context, eventType string, err error) {
	logger := o.loggerWithContext(ctx)
	logger.Warn().
		Str("event_type", eventType).
		Err(err).
		Msg("event dropped")
}

// LogSubscriptionStarted logs when a subscription is started.
func (o *OperationLogger) LogSubscriptionStarted(topic string) {
	o.Info("subscription started",
		"topic", topic,
	)
}

// LogSubscriptionStopped logs when a subscription is stopped.
func (o *OperationLogger) LogSubscriptionStopped(topic string) {
	o.Info("subscription stopped",
		"topic", topic,
	)
}
