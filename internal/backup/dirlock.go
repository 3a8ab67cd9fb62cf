// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/tomtom215/hardstore/internal/logging"
)

// lockFileName is the cross-process lock file inside the backup directory.
const lockFileName = ".lock"

// DirLock is an advisory, non-blocking, cross-process lock on the backup
// directory. The kernel drops it when the holding process exits, so a crash
// never leaves a stale lock behind.
type DirLock struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewDirLock returns a lock on <dir>/.lock. Nothing is opened until TryLock.
func NewDirLock(dir string) *DirLock {
	return &DirLock{path: filepath.Join(dir, lockFileName)}
}

// Path returns the lock file path.
func (d *DirLock) Path() string {
	return d.path
}

// TryLock takes the lock without waiting. It returns false when another
// holder (in this or another process) already has it.
func (d *DirLock) TryLock() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f != nil {
		return false, nil
	}

	//nolint:gosec // G304: path is derived from the configured backup directory
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	ok, err := tryLockFile(f)
	if err != nil || !ok {
		f.Close() //nolint:errcheck // Best effort cleanup
		return false, err
	}

	// The PID is informational only; the lock is the kernel lock, not the content.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	d.f = f
	return true, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (d *DirLock) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return nil
	}
	err := unlockFile(d.f)
	if closeErr := d.f.Close(); err == nil {
		err = closeErr
	}
	d.f = nil
	return err
}

func logUnlockFailure(err error) {
	logging.Warn().Err(err).Str("component", "backup").Msg("Failed to release backup directory lock")
}
