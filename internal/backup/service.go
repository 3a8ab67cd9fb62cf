// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// Service is the entry point used by the HTTP layer, the scheduler service
// and the operator CLI. It wires the components around one Engine.
type Service struct {
	cfg    Config
	engine Engine

	lock      *OperationLock
	meta      *metaStore
	catalog   *Catalog
	verifier  *Verifier
	retention *Retention
	executor  *Executor
	restorer  *Orchestrator
	scheduler *Scheduler

	notifier Notifier
	log      *logging.OperationLogger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	notifier Notifier
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	log      *logging.OperationLogger
}

// WithNotifier sets the receiver of lifecycle events.
func WithNotifier(n Notifier) Option {
	return func(o *serviceOptions) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTimer replaces time.After in the scheduler.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(o *serviceOptions) {
		if after != nil {
			o.after = after
		}
	}
}

// WithOperationLogger replaces the default component logger.
func WithOperationLogger(l *logging.OperationLogger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewService validates cfg, creates the backup directory and assembles the
// components around engine.
func NewService(cfg Config, engine Engine, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("backup engine is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup configuration: %w", err)
	}
	if err := cfg.EnsureBackupDir(); err != nil {
		return nil, err
	}

	o := serviceOptions{
		notifier: nopNotifier{},
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.NewOperationLogger()
	}

	var hour, minute int
	if cfg.Schedule.TimeOfDay != "" {
		h, m, err := ParseTimeOfDay(cfg.Schedule.TimeOfDay)
		if err != nil {
			return nil, fmt.Errorf("invalid backup schedule: %w", err)
		}
		hour, minute = h, m
	}
	loc := cfg.Schedule.Location
	if loc == nil {
		loc = time.Local
	}

	var dirLock *DirLock
	if cfg.ProcessLock {
		dirLock = NewDirLock(cfg.Dir)
	}

	s := &Service{
		cfg:      cfg,
		engine:   engine,
		lock:     NewOperationLock(dirLock),
		meta:     newMetaStore(cfg.Dir),
		notifier: o.notifier,
		log:      o.log,
		now:      o.now,
	}
	s.lock.now = o.now
	s.catalog = newCatalog(cfg.Dir, cfg.Extension, cfg.CatalogCacheTTL, s.meta)

	s.verifier = &Verifier{
		catalog: s.catalog,
		meta:    s.meta,
		engine:  engine,
		timeout: cfg.VerifyTimeout,
		now:     o.now,
	}
	s.retention = &Retention{
		catalog:  s.catalog,
		meta:     s.meta,
		lock:     s.lock,
		notifier: o.notifier,
		log:      o.log,
		now:      o.now,
	}
	s.executor = &Executor{
		engine:        engine,
		catalog:       s.catalog,
		meta:          s.meta,
		lock:          s.lock,
		retention:     s.retention,
		notifier:      o.notifier,
		log:           o.log,
		ext:           cfg.Extension,
		timeout:       cfg.CreateTimeout,
		retentionDays: cfg.RetentionDays,
		now:           o.now,
	}
	s.restorer = &Orchestrator{
		engine:       engine,
		catalog:      s.catalog,
		lock:         s.lock,
		verifier:     s.verifier,
		executor:     s.executor,
		notifier:     o.notifier,
		log:          o.log,
		timeout:      cfg.RestoreTimeout,
		verifyFirst:  cfg.VerifyBeforeRestore,
		safetyBackup: cfg.PreRestoreBackup,
		now:          o.now,
	}
	s.scheduler = &Scheduler{
		create:            s.executor.CreateBackup,
		purge:             s.retention.PurgeOlderThan,
		notifier:          o.notifier,
		log:               o.log,
		enabled:           cfg.Schedule.Enabled,
		hour:              hour,
		minute:            minute,
		loc:               loc,
		grace:             cfg.Schedule.MissedRunGrace,
		retentionInterval: cfg.Schedule.RetentionInterval,
		retentionDays:     cfg.RetentionDays,
		now:               o.now,
		after:             o.after,
	}

	return s, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// Engine returns the database engine.
func (s *Service) Engine() Engine {
	return s.engine
}

// CreateBackup writes a new backup. See Executor.CreateBackup.
func (s *Service) CreateBackup(ctx context.Context, opts CreateOptions) (*Entry, error) {
	return s.executor.CreateBackup(ctx, opts)
}

// ListBackups returns every backup, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]Entry, error) {
	return s.catalog.List(ctx)
}

// Info summarises the catalog.
func (s *Service) Info(ctx context.Context) (CatalogInfo, error) {
	return s.catalog.Info(ctx)
}

// Details returns one backup entry.
func (s *Service) Details(ctx context.Context, fileName string) (*Entry, error) {
	entry, err := s.catalog.Details(ctx, fileName)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Verify checks one backup file. See Verifier.Verify.
func (s *Service) Verify(ctx context.Context, fileName string) (*VerificationResult, error) {
	return s.verifier.Verify(ctx, fileName)
}

// Restore replaces the live database. See Orchestrator.Restore.
func (s *Service) Restore(ctx context.Context, fileName, confirmation string) (*RestoreResult, error) {
	return s.restorer.Restore(ctx, fileName, confirmation)
}

// PurgeOlderThan applies age-based retention. See Retention.PurgeOlderThan.
func (s *Service) PurgeOlderThan(ctx context.Context, days int) (*PurgeResult, error) {
	return s.retention.PurgeOlderThan(ctx, days)
}

// DeleteBackup removes one backup regardless of its age. The target of a
// running operation cannot be deleted.
func (s *Service) DeleteBackup(ctx context.Context, fileName string) error {
	const op = "delete backup"

	if _, err := s.catalog.Details(ctx, fileName); err != nil {
		return err
	}
	var removeErr error
	current, ok := s.lock.unlessTarget(fileName, func() {
		removeErr = os.Remove(s.catalog.Path(fileName))
	})
	if !ok {
		return inProgress(op, current)
	}
	if err := removeErr; err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(op, fileName)
		}
		return newError(KindEngineFailure, op, fileName, "failed to delete backup file", err)
	}
	if err := s.meta.remove(fileName); err != nil {
		logging.Warn().Err(err).Str("file", fileName).Msg("Failed to delete backup metadata")
	}
	s.catalog.Invalidate()

	metrics.RecordBackupDeleted()
	logging.Ctx(ctx).Info().Str("file", fileName).Msg("Backup deleted")
	s.notifier.Notify(ctx, Event{
		Type:      EventBackupDeleted,
		FileName:  fileName,
		Timestamp: s.now().UTC(),
	})
	return nil
}

// Status reports the current or last operation.
func (s *Service) Status() Status {
	return Status{
		Operation:                  s.lock.Current(),
		ManualInterventionRequired: s.restorer.InterventionRequired(),
		NextScheduledBackup:        s.scheduler.NextScheduled(),
	}
}

// RetentionDays is the configured default purge age.
func (s *Service) RetentionDays() int {
	return s.cfg.RetentionDays
}

// Start recovers backups interrupted by a previous process and starts the
// scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.executor.recoverPartials()
	return s.scheduler.Start(ctx)
}

// Stop stops the scheduler and waits for background purges.
func (s *Service) Stop() error {
	err := s.scheduler.Stop()
	s.executor.Wait()
	return err
}
