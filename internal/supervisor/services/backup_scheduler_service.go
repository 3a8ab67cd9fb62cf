// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package services

import (
	"context"
	"fmt"
)

// BackupScheduler is the Start/Stop lifecycle of *backup.Service: Start
// recovers partial backups left by a crash and starts the daily backup and
// retention timers, Stop halts them and waits for background purges.
type BackupScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// BackupSchedulerService adapts BackupScheduler to suture's Serve pattern.
type BackupSchedulerService struct {
	scheduler BackupScheduler
	name      string
}

// NewBackupSchedulerService wraps scheduler.
//
//	svc := services.NewBackupSchedulerService(backupService)
//	tree.AddBackupService(svc)
func NewBackupSchedulerService(scheduler BackupScheduler) *BackupSchedulerService {
	return &BackupSchedulerService{
		scheduler: scheduler,
		name:      "backup-scheduler",
	}
}

// Serve implements suture.Service. A failed Start is returned so the
// supervisor retries with backoff.
func (s *BackupSchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("backup scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("backup scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *BackupSchedulerService) String() string {
	return s.name
}
