// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
restore.go - Restore Orchestration

Restore replaces the live database with the contents of a backup file.

Preconditions, checked before the lock is taken:
  - The confirmation token equals the file name
  - The file is in the catalog and is not a failed creation

Under the RESTORE lock:
 1. Optional structural verification; an invalid file is refused
 2. Optional pre-restore safety backup; failure is reported as a warning
 3. engine.Restore under the restore timeout; the engine quiesces other
    sessions itself

A restore that exceeds its timeout is not rolled back. It fails with
ManualInterventionRequired and the orchestrator stays flagged until a later
restore succeeds.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// Orchestrator performs restores.
type Orchestrator struct {
	engine   Engine
	catalog  *Catalog
	lock     *OperationLock
	verifier *Verifier
	executor *Executor
	notifier Notifier
	log      *logging.OperationLogger

	timeout      time.Duration
	verifyFirst  bool
	safetyBackup bool
	now          func() time.Time

	interventionRequired atomic.Bool
}

// Restore replaces the live database with fileName. confirmation must equal
// fileName.
func (o *Orchestrator) Restore(ctx context.Context, fileName, confirmation string) (*RestoreResult, error) {
	const op = "restore backup"

	if err := validateFileName(op, fileName); err != nil {
		return nil, err
	}
	if confirmation != fileName {
		return nil, validationFailed(op, fileName, "confirmation must match the backup file name")
	}

	entry, err := o.catalog.Details(ctx, fileName)
	if err != nil {
		return nil, err
	}
	if entry.CreationFailed {
		return nil, validationFailed(op, fileName, "backup creation did not complete; it cannot be restored")
	}

	lease, err := o.lock.TryAcquire(OpRestore, fileName)
	if err != nil {
		return nil, err
	}

	opID := lease.ID()
	o.log.LogOperationStarted(ctx, string(OpRestore), opID, fileName)

	result := &RestoreResult{FileName: fileName, StartedAt: o.now().UTC()}
	err = o.run(ctx, opID, fileName, result)
	lease.Release(err)
	o.catalog.Invalidate()

	result.FinishedAt = o.now().UTC()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	if err != nil {
		metrics.RecordBackupOperation(string(OpRestore), "failure", result.Duration)
		o.log.LogOperationFailed(ctx, string(OpRestore), opID, fileName, string(KindOf(err)), err)
		o.notifier.Notify(ctx, Event{
			Type:        EventRestoreFailed,
			OperationID: opID,
			Operation:   OpRestore,
			FileName:    fileName,
			ErrorKind:   KindOf(err),
			Message:     err.Error(),
			Timestamp:   result.FinishedAt,
		})
		return nil, err
	}

	if o.interventionRequired.Swap(false) {
		logging.Info().Str("file", fileName).Msg("Manual intervention flag cleared by successful restore")
	}
	metrics.SetManualInterventionRequired(false)
	metrics.RecordBackupOperation(string(OpRestore), "success", result.Duration)
	o.log.LogOperationSucceeded(ctx, string(OpRestore), opID, fileName, result.Duration)
	o.notifier.Notify(ctx, Event{
		Type:        EventRestoreSucceeded,
		OperationID: opID,
		Operation:   OpRestore,
		FileName:    fileName,
		Timestamp:   result.FinishedAt,
	})
	return result, nil
}

// InterventionRequired reports whether a restore has timed out since the
// last successful restore.
func (o *Orchestrator) InterventionRequired() bool {
	return o.interventionRequired.Load()
}

func (o *Orchestrator) run(ctx context.Context, opID, fileName string, result *RestoreResult) error {
	const op = "restore backup"

	// The file may have been removed by another process before we got the lock.
	if !o.catalog.exists(fileName) {
		return notFound(op, fileName)
	}

	if o.verifyFirst {
		vr, err := o.verifier.Verify(ctx, fileName)
		if err != nil {
			return err
		}
		if !vr.Valid {
			return validationFailed(op, fileName, "backup failed verification: "+vr.Message)
		}
		result.Verified = true
	}

	if o.safetyBackup && o.executor != nil {
		name, err := o.executor.safetyBackup(ctx, opID)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to create pre-restore backup: %v", err))
		} else {
			result.SafetyBackupFile = name
		}
	}

	// Interrupting a restore half way is worse than letting it finish.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	err := o.engine.Restore(rctx, o.catalog.Path(fileName))
	switch {
	case err == nil:
		return nil
	case timedOut(rctx):
		merr := newError(KindManualInterventionRequired, op, fileName,
			fmt.Sprintf("restore exceeded %v timeout; database state is unknown", o.timeout), err)
		o.requireIntervention(ctx, opID, fileName, merr)
		return merr
	case KindOf(err) != "":
		return err
	default:
		return newError(KindEngineFailure, op, fileName, "database restore failed", err)
	}
}

// requireIntervention raises every alarm available: error log with alert=true,
// the Prometheus gauge and a dedicated lifecycle event.
func (o *Orchestrator) requireIntervention(ctx context.Context, opID, fileName string, err error) {
	o.interventionRequired.Store(true)
	metrics.SetManualInterventionRequired(true)
	o.log.LogManualIntervention(ctx, opID, fileName, err)
	o.notifier.Notify(ctx, Event{
		Type:        EventManualIntervention,
		OperationID: opID,
		Operation:   OpRestore,
		FileName:    fileName,
		ErrorKind:   KindManualInterventionRequired,
		Message:     err.Error(),
		Timestamp:   o.now().UTC(),
	})
}
