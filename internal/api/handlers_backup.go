// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/hardstore/internal/backup"
)

// defaultPurgeDays applies when neither ?days nor the configured retention
// is set.
const defaultPurgeDays = 30

// fileNameParam extracts and validates the {fileName} path parameter.
func fileNameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "fileName")
	name, err := url.PathUnescape(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, string(backup.KindValidationFailed), "Invalid file name encoding", nil)
		return "", false
	}
	if apiErr := validateRequest(&FileNameRequest{FileName: name}); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return "", false
	}
	return name, true
}

// CreateBackup creates a new manual backup.
// POST /backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CreateBackupRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, string(backup.KindValidationFailed), err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	entry, err := h.backups.CreateBackup(r.Context(), backup.CreateOptions{NameHint: req.BackupName})
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, entry, start)
}

// ListBackups returns the catalog, newest first.
// GET /backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	entries, err := h.backups.ListBackups(r.Context())
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	if entries == nil {
		entries = []backup.Entry{}
	}
	respondSuccess(w, r, http.StatusOK, entries, start)
}

// BackupInfo summarises the catalog.
// GET /backups/info
func (h *Handler) BackupInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	info, err := h.backups.Info(r.Context())
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, info, start)
}

// BackupStatus reports the running or last operation.
// GET /backups/status
func (h *Handler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.backups.Status(), time.Time{})
}

// BackupEvents returns recent lifecycle events, newest first.
// GET /backups/events
func (h *Handler) BackupEvents(w http.ResponseWriter, r *http.Request) {
	events := []backup.Event{}
	if h.events != nil {
		events = append(events, h.events.Recent()...)
	}
	respondSuccess(w, r, http.StatusOK, events, time.Time{})
}

// BackupDetails returns one catalog entry.
// GET /backups/{fileName}/details
func (h *Handler) BackupDetails(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name, ok := fileNameParam(w, r)
	if !ok {
		return
	}

	entry, err := h.backups.Details(r.Context(), name)
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, entry, start)
}

// VerifyBackup checks that a backup file is restorable. An invalid file is a
// normal 200 response with valid=false.
// POST /backups/{fileName}/verify
func (h *Handler) VerifyBackup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name, ok := fileNameParam(w, r)
	if !ok {
		return
	}

	result, err := h.backups.Verify(r.Context(), name)
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// RestoreBackup replaces the live database with a backup.
// POST /backups/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RestoreBackupRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, string(backup.KindValidationFailed), err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	result, err := h.backups.Restore(r.Context(), req.FileName, req.Confirmation)
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// PurgeOldBackups applies age-based retention.
// DELETE /backups/old?days=N
func (h *Handler) PurgeOldBackups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	days := h.backups.RetentionDays()
	if days <= 0 {
		days = defaultPurgeDays
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, string(backup.KindValidationFailed),
				"days must be a whole number", map[string]interface{}{"field": "days", "value": sanitizeLogValue(raw)})
			return
		}
		days = n
	}
	if apiErr := validateRequest(&PurgeRequest{Days: days}); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	result, err := h.backups.PurgeOlderThan(r.Context(), days)
	if err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// DeleteBackup removes one backup regardless of its age.
// DELETE /backups/{fileName}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name, ok := fileNameParam(w, r)
	if !ok {
		return
	}

	if err := h.backups.DeleteBackup(r.Context(), name); err != nil {
		respondBackupError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"fileName": name,
		"deleted":  true,
	}, start)
}
