// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/hardstore/internal/metrics"
)

// OperationLock admits at most one backup or restore at a time. Admission is
// accept-or-reject: TryAcquire never blocks and never queues.
//
// The lock exclusively owns the OperationRecord; other components read it
// through Current.
type OperationLock struct {
	mu      sync.Mutex
	current OperationRecord
	dirLock *DirLock
	now     func() time.Time
}

// NewOperationLock creates an idle lock. dirLock may be nil; when set it is
// held for as long as an operation is running.
func NewOperationLock(dirLock *DirLock) *OperationLock {
	return &OperationLock{
		current: OperationRecord{State: StateIdle},
		dirLock: dirLock,
		now:     time.Now,
	}
}

// Lease is the holder's handle on an admitted operation.
type Lease struct {
	lock     *OperationLock
	id       string
	released bool
}

// TryAcquire admits a new operation of the given kind targeting fileName, or
// fails immediately with an OperationInProgress error.
func (l *OperationLock) TryAcquire(kind OperationKind, fileName string) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current.Running() {
		return nil, inProgress("acquire", l.current)
	}

	if l.dirLock != nil {
		ok, err := l.dirLock.TryLock()
		if err != nil {
			return nil, newError(KindEngineFailure, "acquire", "", "failed to take backup directory lock", err)
		}
		if !ok {
			return nil, newError(KindOperationInProgress, "acquire", "",
				"operation already in progress in another process", nil)
		}
	}

	started := l.now().UTC()
	l.current = OperationRecord{
		ID:             uuid.New().String(),
		Kind:           kind,
		State:          StateRunning,
		StartedAt:      &started,
		TargetFileName: fileName,
	}
	metrics.SetBackupOperationInProgress(string(kind), true)

	return &Lease{lock: l, id: l.current.ID}, nil
}

// Current returns a snapshot of the running or most recent operation.
func (l *OperationLock) Current() OperationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Record returns a snapshot of the operation this lease admitted.
func (le *Lease) Record() OperationRecord {
	le.lock.mu.Lock()
	defer le.lock.mu.Unlock()
	return le.lock.current
}

// ID is the operation ID assigned on admission.
func (le *Lease) ID() string {
	return le.id
}

// Release finishes the operation as SUCCEEDED (err == nil) or FAILED and
// admits the next caller. Releasing twice is a no-op.
func (le *Lease) Release(err error) OperationRecord {
	l := le.lock
	l.mu.Lock()
	defer l.mu.Unlock()

	if le.released || l.current.ID != le.id {
		return l.current
	}
	le.released = true

	finished := l.now().UTC()
	l.current.FinishedAt = &finished
	if err != nil {
		l.current.State = StateFailed
		l.current.ErrorDetail = err.Error()
		l.current.ErrorKind = KindOf(err)
	} else {
		l.current.State = StateSucceeded
	}
	metrics.SetBackupOperationInProgress(string(l.current.Kind), false)

	if l.dirLock != nil {
		if unlockErr := l.dirLock.Unlock(); unlockErr != nil {
			logUnlockFailure(unlockErr)
		}
	}
	return l.current
}

// whileIdle runs fn with no operation running and the directory lock held,
// so housekeeping cannot race a backup or restore in this or another
// process. It reports false without calling fn when the lock is busy.
func (l *OperationLock) whileIdle(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current.Running() {
		return false
	}
	if l.dirLock != nil {
		ok, err := l.dirLock.TryLock()
		if err != nil || !ok {
			return false
		}
		defer func() {
			if err := l.dirLock.Unlock(); err != nil {
				logUnlockFailure(err)
			}
		}()
	}
	fn()
	return true
}

// unlessTarget runs fn under the lock unless the running operation targets
// fileName, in which case it returns that operation and false. Admission
// waits for fn, so a file removed here cannot become the target of a new
// operation halfway through.
func (l *OperationLock) unlessTarget(fileName string, fn func()) (OperationRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current.Running() && l.current.TargetFileName == fileName {
		return l.current, false
	}
	fn()
	return l.current, true
}
