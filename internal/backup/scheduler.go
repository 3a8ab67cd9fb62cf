// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
scheduler.go - Daily Automatic Backup

The scheduler fires one automatic backup per day at a configured wall-clock
time, plus a periodic retention sweep.

Timer Logic:
  - The next run is the first HH:MM strictly after the previous one (or now),
    computed with time.Date in the configured location so DST changes move
    the instant, not the wall-clock time
  - A timer that fires more than MissedRunGrace late (host suspended, clock
    jump) counts as a missed run and is skipped; there is no catch-up
  - A run that finds another operation in progress is skipped for the day
    with a warning, a metric and a lifecycle event

Graceful shutdown: Stop (or context cancellation) ends the loop. A backup
already running is allowed to finish within its own timeout.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// Scheduler triggers automatic backups and retention sweeps.
type Scheduler struct {
	create func(ctx context.Context, opts CreateOptions) (*Entry, error)
	purge  func(ctx context.Context, days int) (*PurgeResult, error)

	notifier Notifier
	log      *logging.OperationLogger

	enabled           bool
	hour, minute      int
	loc               *time.Location
	grace             time.Duration
	retentionInterval time.Duration
	retentionDays     int

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
	next    *time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NextRun returns the first scheduled time strictly after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	local := t.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	for !next.After(t) {
		next = time.Date(next.Year(), next.Month(), next.Day()+1, s.hour, s.minute, 0, 0, s.loc)
	}
	return next
}

// NextScheduled returns the planned time of the next automatic backup, or
// nil when the scheduler is not running.
func (s *Scheduler) NextScheduled() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		return nil
	}
	t := *s.next
	return &t
}

// Start launches the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("backup scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.enabled && s.retentionInterval <= 0 {
		logging.Info().Msg("Backup scheduler disabled")
		go func() {
			defer close(s.doneCh)
			select {
			case <-s.stopCh:
			case <-ctx.Done():
			}
		}()
		return nil
	}

	logging.Info().
		Bool("daily_backup", s.enabled).
		Str("time_of_day", fmt.Sprintf("%02d:%02d", s.hour, s.minute)).
		Str("location", s.loc.String()).
		Dur("retention_interval", s.retentionInterval).
		Msg("Starting backup scheduler")

	go s.run(ctx)
	return nil
}

// Stop ends the loop and waits for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.next = nil
	s.mu.Unlock()

	logging.Info().Msg("Backup scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	var fire, sweep <-chan time.Time
	var scheduled time.Time
	if s.enabled {
		scheduled = s.plan(s.now())
		fire = s.after(scheduled.Sub(s.now()))
	}
	if s.retentionInterval > 0 {
		sweep = s.after(s.retentionInterval)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-fire:
			s.runScheduled(ctx, scheduled)
			// Never plan the same slot twice, even if the timer fired early.
			from := s.now()
			if scheduled.After(from) {
				from = scheduled
			}
			scheduled = s.plan(from)
			fire = s.after(scheduled.Sub(s.now()))
		case <-sweep:
			s.sweep(ctx)
			sweep = s.after(s.retentionInterval)
		}
	}
}

// plan records and returns the next run after t.
func (s *Scheduler) plan(t time.Time) time.Time {
	next := s.NextRun(t)
	s.mu.Lock()
	s.next = &next
	s.mu.Unlock()
	s.log.LogNextScheduledRun(next)
	return next
}

// runScheduled performs the backup planned for scheduled.
func (s *Scheduler) runScheduled(ctx context.Context, scheduled time.Time) {
	if late := s.now().Sub(scheduled); s.grace > 0 && late > s.grace {
		s.skip(ctx, scheduled, "missed", fmt.Sprintf("timer fired %v late", late.Round(time.Second)))
		return
	}

	entry, err := s.create(ctx, CreateOptions{Automatic: true})
	switch {
	case err == nil:
		logging.Info().Str("file", entry.FileName).Msg("Scheduled backup completed")
	case KindOf(err) == KindOperationInProgress:
		s.skip(ctx, scheduled, "busy", "another backup or restore is in progress")
	default:
		logging.Error().Err(err).Str("error_kind", string(KindOf(err))).Msg("Scheduled backup failed")
	}
}

func (s *Scheduler) skip(ctx context.Context, scheduled time.Time, reason, message string) {
	metrics.RecordScheduledBackupSkipped(reason)
	s.log.LogScheduledRunSkipped(scheduled, message)
	s.notifier.Notify(ctx, Event{
		Type:      EventScheduledBackupSkipped,
		Operation: OpBackup,
		Automatic: true,
		Message:   message,
		Timestamp: s.now().UTC(),
	})
}

// sweep applies the configured retention period.
func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.purge(ctx, s.retentionDays); err != nil {
		logging.Error().Err(err).Msg("Periodic retention sweep failed")
	}
}
