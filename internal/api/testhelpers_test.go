// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/models"
)

// mockBackupService implements BackupService with overridable functions.
// Unset functions return zero values.
type mockBackupService struct {
	createFn   func(ctx context.Context, opts backup.CreateOptions) (*backup.Entry, error)
	listFn     func(ctx context.Context) ([]backup.Entry, error)
	infoFn     func(ctx context.Context) (backup.CatalogInfo, error)
	detailsFn  func(ctx context.Context, fileName string) (*backup.Entry, error)
	verifyFn   func(ctx context.Context, fileName string) (*backup.VerificationResult, error)
	restoreFn  func(ctx context.Context, fileName, confirmation string) (*backup.RestoreResult, error)
	purgeFn    func(ctx context.Context, days int) (*backup.PurgeResult, error)
	deleteFn   func(ctx context.Context, fileName string) error
	status     backup.Status
	retainDays int
}

func (m *mockBackupService) CreateBackup(ctx context.Context, opts backup.CreateOptions) (*backup.Entry, error) {
	if m.createFn != nil {
		return m.createFn(ctx, opts)
	}
	return &backup.Entry{FileName: "hardstore_20260501_020000.bak"}, nil
}

func (m *mockBackupService) ListBackups(ctx context.Context) ([]backup.Entry, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockBackupService) Info(ctx context.Context) (backup.CatalogInfo, error) {
	if m.infoFn != nil {
		return m.infoFn(ctx)
	}
	return backup.CatalogInfo{}, nil
}

func (m *mockBackupService) Details(ctx context.Context, fileName string) (*backup.Entry, error) {
	if m.detailsFn != nil {
		return m.detailsFn(ctx, fileName)
	}
	return &backup.Entry{FileName: fileName}, nil
}

func (m *mockBackupService) Verify(ctx context.Context, fileName string) (*backup.VerificationResult, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, fileName)
	}
	return &backup.VerificationResult{FileName: fileName, Valid: true}, nil
}

func (m *mockBackupService) Restore(ctx context.Context, fileName, confirmation string) (*backup.RestoreResult, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, fileName, confirmation)
	}
	return &backup.RestoreResult{FileName: fileName, Verified: true}, nil
}

func (m *mockBackupService) PurgeOlderThan(ctx context.Context, days int) (*backup.PurgeResult, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, days)
	}
	return &backup.PurgeResult{Days: days}, nil
}

func (m *mockBackupService) DeleteBackup(ctx context.Context, fileName string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, fileName)
	}
	return nil
}

func (m *mockBackupService) Status() backup.Status {
	return m.status
}

func (m *mockBackupService) RetentionDays() int {
	return m.retainDays
}

// mockPinger implements DatabasePinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}

type staticHistory []backup.Event

func (s staticHistory) Recent() []backup.Event {
	return s
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Engine = config.EngineDuckDB
	return cfg
}

// newTestRouter wires svc behind the full router with rate limiting off.
func newTestRouter(t *testing.T, svc BackupService) http.Handler {
	t.Helper()
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true
	h := NewHandler(svc, &mockPinger{}, testConfig())
	return NewRouter(h, NewChiMiddleware(mwCfg)).SetupChi()
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope decodes the response envelope, placing Data into data
// when data is non-nil.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var raw struct {
		models.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("failed to decode data %s: %v", raw.Data, err)
		}
	}
	return raw.APIResponse
}
