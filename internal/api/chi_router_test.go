// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/hardstore/internal/backup"
)

func TestRouterNotFoundEnvelope(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(t, &mockBackupService{}), http.MethodGet, "/products", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec, nil)
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("response = %+v", resp)
	}
}

func TestRouterMethodNotAllowedEnvelope(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(t, &mockBackupService{}), http.MethodPut, "/backups/info", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	resp := decodeEnvelope(t, rec, nil)
	if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestRouterOldIsNotAFileName(t *testing.T) {
	t.Parallel()

	purged, deleted := false, false
	svc := &mockBackupService{
		purgeFn: func(_ context.Context, days int) (*backup.PurgeResult, error) {
			purged = true
			return &backup.PurgeResult{Days: days}, nil
		},
		deleteFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	router := newTestRouter(t, svc)

	rec := doRequest(t, router, http.MethodDelete, "/backups/old", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !purged || deleted {
		t.Errorf("purged = %v deleted = %v, want purge only", purged, deleted)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &mockBackupService{})
	doRequest(t, router, http.MethodGet, "/backups/info", "")

	rec := doRequest(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `endpoint="/backups/info"`) {
		t.Error("metrics output does not contain the /backups/info route pattern")
	}
}
