// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
executor.go - Backup Creation

The executor resolves a file name, takes the operation lock as BACKUP and
asks the engine to write a full backup under the create timeout.

File Lifecycle:
  - The engine writes to a hidden ".<name>.partial" file that the catalog
    never lists
  - On success the partial is renamed to its final name, so a listed backup
    is always a complete one
  - On failure or timeout the partial (if any) is renamed to the final name
    and its sidecar marks it as a failed creation; it stays UNVERIFIED and
    retention will not delete it
  - The sidecar is written as "in_progress" before the engine starts, so a
    process crash is also detectable afterwards

Side Effects:
A successful automatic backup triggers an asynchronous retention purge.
Backups requested by a caller never do.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// maxNameSequence bounds the _n suffixes tried for a synthesized name.
const maxNameSequence = 100

// Executor creates backups.
type Executor struct {
	engine    Engine
	catalog   *Catalog
	meta      *metaStore
	lock      *OperationLock
	retention *Retention
	notifier  Notifier
	log       *logging.OperationLogger

	ext           string
	timeout       time.Duration
	retentionDays int
	now           func() time.Time

	bg sync.WaitGroup
}

// CreateBackup writes a new backup and returns its catalog entry.
func (x *Executor) CreateBackup(ctx context.Context, opts CreateOptions) (*Entry, error) {
	const op = "create backup"

	hinted := strings.TrimSpace(opts.NameHint) != ""
	fileName, err := x.resolveName(opts)
	if err != nil {
		return nil, err
	}

	lease, err := x.lock.TryAcquire(OpBackup, fileName)
	if err != nil {
		return nil, err
	}

	// Another process may have produced the same name before we got the lock.
	if x.taken(fileName) {
		if hinted {
			err = validationFailed(op, fileName, "a backup with this name already exists")
			lease.Release(err)
			return nil, err
		}
		if fileName, err = x.freeName(fileName); err != nil {
			lease.Release(err)
			return nil, err
		}
	}

	opID := lease.ID()
	x.log.LogOperationStarted(ctx, string(OpBackup), opID, fileName)
	started := x.now()

	err = x.write(ctx, opID, fileName, opts.Automatic)
	lease.Release(err)
	x.catalog.Invalidate()
	elapsed := x.now().Sub(started)

	if err != nil {
		metrics.RecordBackupOperation(string(OpBackup), "failure", elapsed)
		x.log.LogOperationFailed(ctx, string(OpBackup), opID, fileName, string(KindOf(err)), err)
		x.notifier.Notify(ctx, Event{
			Type:        EventBackupFailed,
			OperationID: opID,
			Operation:   OpBackup,
			FileName:    fileName,
			Automatic:   opts.Automatic,
			ErrorKind:   KindOf(err),
			Message:     err.Error(),
			Timestamp:   x.now().UTC(),
		})
		return nil, err
	}

	metrics.RecordBackupOperation(string(OpBackup), "success", elapsed)
	x.log.LogOperationSucceeded(ctx, string(OpBackup), opID, fileName, elapsed)
	x.notifier.Notify(ctx, Event{
		Type:        EventBackupSucceeded,
		OperationID: opID,
		Operation:   OpBackup,
		FileName:    fileName,
		Automatic:   opts.Automatic,
		Timestamp:   x.now().UTC(),
	})

	if opts.Automatic {
		x.purgeAsync(ctx)
	}

	entry, err := x.catalog.Details(ctx, fileName)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// safetyBackup writes a backup while the caller already holds the lock for
// operation opID. It returns the new file name.
func (x *Executor) safetyBackup(ctx context.Context, opID string) (string, error) {
	fileName, err := x.freeName(synthesizeName(x.engine.Name(), labelPreRestore, x.now(), x.ext))
	if err != nil {
		return "", err
	}

	started := x.now()
	err = x.write(ctx, opID, fileName, false)
	x.catalog.Invalidate()

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.RecordBackupOperation(string(OpBackup), result, x.now().Sub(started))
	return fileName, err
}

// resolveName sanitizes a hint or synthesizes a timestamped name.
func (x *Executor) resolveName(opts CreateOptions) (string, error) {
	const op = "create backup"

	if strings.TrimSpace(opts.NameHint) != "" {
		name, err := sanitizeHint(opts.NameHint, x.ext)
		if err != nil {
			return "", err
		}
		if x.taken(name) {
			return "", validationFailed(op, name, "a backup with this name already exists")
		}
		return name, nil
	}

	label := labelManual
	if opts.Automatic {
		label = labelAutomatic
	}
	return x.freeName(synthesizeName(x.engine.Name(), label, x.now(), x.ext))
}

// freeName returns name, or name with the first free _n suffix.
func (x *Executor) freeName(name string) (string, error) {
	if !x.taken(name) {
		return name, nil
	}
	for n := 1; n < maxNameSequence; n++ {
		candidate := withSequence(name, x.ext, n)
		if !x.taken(candidate) {
			return candidate, nil
		}
	}
	return "", validationFailed("create backup", name, "no free backup name for this timestamp")
}

// taken reports whether fileName exists, or is being written, on disk.
func (x *Executor) taken(fileName string) bool {
	if x.catalog.exists(fileName) {
		return true
	}
	_, err := os.Lstat(x.catalog.Path(partialName(fileName)))
	return err == nil
}

// write runs the engine backup for fileName. It is called with the lock held.
func (x *Executor) write(ctx context.Context, opID, fileName string, automatic bool) error {
	const op = "create backup"

	err := x.meta.write(metadata{
		FileName:    fileName,
		OperationID: opID,
		Automatic:   automatic,
		Creation:    creationInProgress,
	})
	if err != nil {
		return newError(KindEngineFailure, op, fileName, "failed to write backup metadata", err)
	}

	final := x.catalog.Path(fileName)
	partial := x.catalog.Path(partialName(fileName))

	// Once started, a backup runs to completion or to its timeout.
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), x.timeout)
	defer cancel()

	err = x.engine.Backup(bctx, partial)
	if err == nil {
		if renameErr := os.Rename(partial, final); renameErr != nil {
			err = newError(KindEngineFailure, op, fileName, "failed to move backup into place", renameErr)
		}
	}

	if err == nil {
		err = x.meta.update(fileName, func(m *metadata) {
			m.Creation = creationCompleted
			m.FailureReason = ""
		})
		if err != nil {
			// An in_progress sidecar would make a good backup look failed.
			logging.Warn().Err(err).Str("file", fileName).Msg("Failed to finalize backup metadata")
			if rmErr := x.meta.remove(fileName); rmErr != nil {
				logging.Warn().Err(rmErr).Str("file", fileName).Msg("Failed to remove backup metadata")
			}
		}
		return nil
	}

	var classified error
	switch {
	case timedOut(bctx):
		classified = newError(KindTimeout, op, fileName, fmt.Sprintf("backup exceeded %v timeout", x.timeout), err)
	case KindOf(err) != "":
		classified = err
	default:
		classified = newError(KindEngineFailure, op, fileName, "database backup failed", err)
	}
	x.keepFailed(fileName, partial, final, classified)
	return classified
}

// keepFailed leaves whatever the engine wrote under the final name, flagged
// as a failed creation. Without a partial file there is nothing to keep.
func (x *Executor) keepFailed(fileName, partial, final string, cause error) {
	if _, err := os.Lstat(partial); err != nil {
		if rmErr := x.meta.remove(fileName); rmErr != nil {
			logging.Warn().Err(rmErr).Str("file", fileName).Msg("Failed to remove backup metadata")
		}
		return
	}

	if _, err := os.Lstat(final); errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(partial, final); err != nil {
			logging.Warn().Err(err).Str("file", fileName).Msg("Failed to keep partial backup file")
		}
	}

	err := x.meta.update(fileName, func(m *metadata) {
		m.Creation = creationFailed
		m.FailureReason = cause.Error()
	})
	if err != nil {
		logging.Warn().Err(err).Str("file", fileName).Msg("Failed to mark backup as failed")
	}
}

// recoverPartials flags partial files left behind by a process that exited
// mid-backup. It only runs when no operation holds the lock.
func (x *Executor) recoverPartials() int {
	recovered := 0
	ran := x.lock.whileIdle(func() {
		dirEntries, err := os.ReadDir(x.catalog.Dir())
		if err != nil {
			return
		}
		for _, de := range dirEntries {
			name := de.Name()
			if de.IsDir() || !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, partialSuffix) {
				continue
			}
			fileName := strings.TrimSuffix(strings.TrimPrefix(name, "."), partialSuffix)
			if validateFileName("recover backup", fileName) != nil || !x.catalog.hasExtension(fileName) {
				continue
			}
			x.keepFailed(fileName, x.catalog.Path(name), x.catalog.Path(fileName),
				errors.New("backup interrupted before completion"))
			recovered++
		}
	})
	if ran && recovered > 0 {
		x.catalog.Invalidate()
		logging.Warn().Int("count", recovered).Msg("Recovered interrupted backups as failed creations")
	}
	return recovered
}

// purgeAsync applies the configured retention in the background.
func (x *Executor) purgeAsync(ctx context.Context) {
	if x.retention == nil {
		return
	}
	x.bg.Add(1)
	go func() {
		defer x.bg.Done()
		if _, err := x.retention.PurgeOlderThan(context.WithoutCancel(ctx), x.retentionDays); err != nil {
			logging.Warn().Err(err).Msg("Retention purge after automatic backup failed")
		}
	}()
}

// Wait blocks until background retention purges have finished.
func (x *Executor) Wait() {
	x.bg.Wait()
}
