// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
retention.go - Age-Based Retention Purge

PurgeOlderThan deletes backups whose createdAt is before now - days, oldest
first, with two safety nets:

  - The newest restorable backup is never deleted, whatever its age, so a
    purge can never leave the system without a backup to restore from.
  - Entries flagged as failed creations are skipped; they are evidence of a
    failed run and need an explicit DeleteBackup.

The target of a running backup or restore is skipped as well. Each deletion
is one os.Remove; failures are collected per file and the purge carries on.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// Retention applies the age-based purge policy.
type Retention struct {
	catalog  *Catalog
	meta     *metaStore
	lock     *OperationLock
	notifier Notifier
	log      *logging.OperationLogger
	now      func() time.Time
}

// PurgeOlderThan deletes backups older than days. See the file comment for
// the entries it always keeps.
func (r *Retention) PurgeOlderThan(ctx context.Context, days int) (*PurgeResult, error) {
	const op = "purge backups"
	if days < 0 {
		return nil, validationFailed(op, "", "days must be non-negative")
	}

	// Retention decisions are made on a fresh listing, never a cached one.
	r.catalog.Invalidate()
	entries, err := r.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := r.now().UTC().AddDate(0, 0, -days)
	result := &PurgeResult{
		Days:    days,
		Cutoff:  cutoff,
		Deleted: []string{},
		Kept:    []string{},
	}

	protected := newestRestorable(entries)

	var candidates []Entry
	for _, e := range entries {
		switch {
		case !e.CreatedAt.Before(cutoff):
			result.Kept = append(result.Kept, e.FileName)
		case e.FileName == protected:
			result.Kept = append(result.Kept, e.FileName)
		case e.CreationFailed:
			result.Kept = append(result.Kept, e.FileName)
			result.Skipped = append(result.Skipped, e.FileName)
		default:
			candidates = append(candidates, e)
		}
	}

	// Oldest first.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			result.Kept = append(result.Kept, e.FileName)
			continue
		}
		var removeErr error
		_, ok := r.lock.unlessTarget(e.FileName, func() {
			removeErr = os.Remove(r.catalog.Path(e.FileName))
		})
		if !ok {
			result.Kept = append(result.Kept, e.FileName)
			result.Skipped = append(result.Skipped, e.FileName)
			continue
		}
		if err := removeErr; err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn().Err(err).Str("file", e.FileName).Msg("Failed to delete backup during retention purge")
			result.Failed = append(result.Failed, PurgeFailure{FileName: e.FileName, Error: err.Error()})
			result.Kept = append(result.Kept, e.FileName)
			continue
		}
		if err := r.meta.remove(e.FileName); err != nil {
			logging.Warn().Err(err).Str("file", e.FileName).Msg("Failed to delete backup metadata")
		}
		result.Deleted = append(result.Deleted, e.FileName)
	}

	r.meta.pruneOrphans(r.catalog.exists)
	r.catalog.Invalidate()

	metrics.RecordRetentionPurge(len(result.Deleted), len(result.Failed))
	r.log.LogRetentionCompleted(ctx, days, len(result.Deleted), len(result.Kept), len(result.Failed))

	r.notifier.Notify(ctx, Event{
		Type:      EventRetentionCompleted,
		Deleted:   len(result.Deleted),
		Timestamp: r.now().UTC(),
	})

	return result, nil
}

// newestRestorable returns the newest entry that is not a failed creation.
// entries is sorted newest first.
func newestRestorable(entries []Entry) string {
	for _, e := range entries {
		if !e.CreationFailed {
			return e.FileName
		}
	}
	return ""
}
