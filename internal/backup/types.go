// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"context"
	"time"
)

// VerificationStatus is the outcome of the most recent verification of a backup file.
type VerificationStatus string

const (
	// StatusUnverified means the file has never been verified, or the last
	// attempt was inconclusive.
	StatusUnverified VerificationStatus = "UNVERIFIED"
	// StatusValid means the engine accepted the file as restorable.
	StatusValid VerificationStatus = "VALID"
	// StatusInvalid means the engine rejected the file or its checksum changed.
	StatusInvalid VerificationStatus = "INVALID"
)

// OperationKind identifies a backup or restore job.
type OperationKind string

const (
	OpBackup  OperationKind = "BACKUP"
	OpRestore OperationKind = "RESTORE"
)

// OperationState is the lifecycle state of an OperationRecord.
type OperationState string

const (
	StateIdle      OperationState = "IDLE"
	StateRunning   OperationState = "RUNNING"
	StateSucceeded OperationState = "SUCCEEDED"
	StateFailed    OperationState = "FAILED"
)

// Entry is one physical backup file as seen by the catalog.
type Entry struct {
	FileName           string             `json:"fileName"`
	CreatedAt          time.Time          `json:"createdAt"`
	SizeBytes          int64              `json:"sizeBytes"`
	IsAutomatic        bool               `json:"isAutomatic"`
	Checksum           string             `json:"checksum,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	VerifiedAt         *time.Time         `json:"verifiedAt,omitempty"`

	// CreationFailed marks a partial file left behind by a failed or timed-out
	// backup. Such entries are never purged by age and cannot be restored.
	CreationFailed bool   `json:"creationFailed,omitempty"`
	FailureReason  string `json:"failureReason,omitempty"`
}

// OperationRecord describes the running, or most recently finished, backup or restore.
type OperationRecord struct {
	ID             string         `json:"id,omitempty"`
	Kind           OperationKind  `json:"kind,omitempty"`
	State          OperationState `json:"state"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	FinishedAt     *time.Time     `json:"finishedAt,omitempty"`
	TargetFileName string         `json:"targetFileName,omitempty"`
	ErrorDetail    string         `json:"errorDetail,omitempty"`
	ErrorKind      ErrorKind      `json:"errorKind,omitempty"`
}

// Running reports whether the record describes an operation still in flight.
func (r OperationRecord) Running() bool {
	return r.State == StateRunning
}

// VerificationResult is returned by Verify. Valid=false with a message is a
// normal outcome, not an error.
type VerificationResult struct {
	FileName  string    `json:"fileName"`
	Valid     bool      `json:"valid"`
	Message   string    `json:"message"`
	Checksum  string    `json:"checksum,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// RestoreResult summarises a completed restore.
type RestoreResult struct {
	FileName         string        `json:"fileName"`
	StartedAt        time.Time     `json:"startedAt"`
	FinishedAt       time.Time     `json:"finishedAt"`
	Duration         time.Duration `json:"durationNs"`
	Verified         bool          `json:"verified"`
	SafetyBackupFile string        `json:"safetyBackupFile,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
}

// CatalogInfo summarises the catalog. Oldest and Newest are nil when empty.
type CatalogInfo struct {
	Count          int        `json:"count"`
	TotalSizeBytes int64      `json:"totalSizeBytes"`
	Oldest         *time.Time `json:"oldest"`
	Newest         *time.Time `json:"newest"`
}

// PurgeFailure is a single file the retention pass could not remove.
type PurgeFailure struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// PurgeResult reports the outcome of a retention pass. Kept lists every
// backup still on disk afterwards, including the ones listed in Failed.
type PurgeResult struct {
	Days    int            `json:"days"`
	Cutoff  time.Time      `json:"cutoff"`
	Deleted []string       `json:"deleted"`
	Kept    []string       `json:"kept"`
	Skipped []string       `json:"skipped,omitempty"`
	Failed  []PurgeFailure `json:"failed,omitempty"`
}

// CreateOptions controls a single backup.
type CreateOptions struct {
	// NameHint is an optional caller-supplied file name. It is sanitized and
	// must not collide with an existing backup.
	NameHint string

	// Automatic marks the backup as produced by the Scheduler.
	Automatic bool
}

// Status is a point-in-time view of the backup subsystem.
type Status struct {
	Operation                  OperationRecord `json:"operation"`
	ManualInterventionRequired bool            `json:"manualInterventionRequired"`
	NextScheduledBackup        *time.Time      `json:"nextScheduledBackup,omitempty"`
}

// Engine is the database-specific half of the backup system. Implementations
// own the live connection pool and must return promptly once ctx is done.
type Engine interface {
	// Name is the database name used when synthesizing backup file names.
	Name() string

	// Backup writes a full backup of the live database to destPath.
	Backup(ctx context.Context, destPath string) error

	// Verify checks that the file at path is structurally restorable
	// without touching the live database or modifying the file.
	Verify(ctx context.Context, path string) error

	// Restore replaces the live database contents with the backup at
	// srcPath. The engine is responsible for excluding other sessions.
	Restore(ctx context.Context, srcPath string) error
}
