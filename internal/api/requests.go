// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

// CreateBackupRequest is the optional body of POST /backups.
type CreateBackupRequest struct {
	BackupName string `json:"backupName" validate:"omitempty,filename,max=128"`
}

// RestoreBackupRequest is the body of POST /backups/restore. Confirmation
// must repeat the file name.
type RestoreBackupRequest struct {
	FileName     string `json:"fileName" validate:"required,filename,max=255"`
	Confirmation string `json:"confirmation" validate:"required,max=255"`
}

// FileNameRequest validates a {fileName} path parameter.
type FileNameRequest struct {
	FileName string `json:"fileName" validate:"required,filename,max=255"`
}

// PurgeRequest validates the days query parameter of DELETE /backups/old.
type PurgeRequest struct {
	Days int `validate:"min=0,max=36500"`
}
