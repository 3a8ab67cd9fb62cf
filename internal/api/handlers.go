// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

import (
	"context"
	"time"

	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/config"
)

// BackupService is the backup subsystem as seen by the HTTP layer.
// It is satisfied by *backup.Service.
type BackupService interface {
	CreateBackup(ctx context.Context, opts backup.CreateOptions) (*backup.Entry, error)
	ListBackups(ctx context.Context) ([]backup.Entry, error)
	Info(ctx context.Context) (backup.CatalogInfo, error)
	Details(ctx context.Context, fileName string) (*backup.Entry, error)
	Verify(ctx context.Context, fileName string) (*backup.VerificationResult, error)
	Restore(ctx context.Context, fileName, confirmation string) (*backup.RestoreResult, error)
	PurgeOlderThan(ctx context.Context, days int) (*backup.PurgeResult, error)
	DeleteBackup(ctx context.Context, fileName string) error
	Status() backup.Status
	RetentionDays() int
}

// DatabasePinger reports database connectivity for /health.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// EventHistory exposes recently published lifecycle events.
// It is satisfied by *events.Recorder.
type EventHistory interface {
	Recent() []backup.Event
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: response and error helpers
//   - handlers_health.go: health endpoint
//   - handlers_backup.go: backup lifecycle endpoints
type Handler struct {
	backups   BackupService
	db        DatabasePinger
	events    EventHistory
	config    *config.Config
	startTime time.Time
}

// NewHandler creates the API handler. db may be nil, in which case /health
// reports the database as disconnected.
func NewHandler(backups BackupService, db DatabasePinger, cfg *config.Config) *Handler {
	return &Handler{
		backups:   backups,
		db:        db,
		config:    cfg,
		startTime: time.Now(),
	}
}

// SetEventHistory sets the source for GET /backups/events.
//
// Thread Safety: should be called once during startup.
func (h *Handler) SetEventHistory(events EventHistory) {
	h.events = events
}
