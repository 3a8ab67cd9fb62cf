// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"context"
	"time"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventBackupSucceeded        EventType = "backup.succeeded"
	EventBackupFailed           EventType = "backup.failed"
	EventRestoreSucceeded       EventType = "restore.succeeded"
	EventRestoreFailed          EventType = "restore.failed"
	EventManualIntervention     EventType = "restore.manual_intervention_required"
	EventScheduledBackupSkipped EventType = "schedule.skipped"
	EventRetentionCompleted     EventType = "retention.completed"
	EventBackupDeleted          EventType = "backup.deleted"
)

// Event is published to the Notifier after every lifecycle transition.
type Event struct {
	Type        EventType     `json:"type"`
	OperationID string        `json:"operationId,omitempty"`
	Operation   OperationKind `json:"operation,omitempty"`
	FileName    string        `json:"fileName,omitempty"`
	Automatic   bool          `json:"automatic,omitempty"`
	ErrorKind   ErrorKind     `json:"errorKind,omitempty"`
	Message     string        `json:"message,omitempty"`
	Deleted     int           `json:"deleted,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Notifier receives lifecycle events. Implementations must not block for long;
// they are called on the operation's goroutine.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}
