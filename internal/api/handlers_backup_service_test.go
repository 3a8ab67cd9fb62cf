// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/hardstore/internal/backup"
)

// gatedEngine is a backup.Engine whose Restore blocks until release is closed.
type gatedEngine struct {
	started chan string
	release chan struct{}
}

func (g *gatedEngine) Name() string { return "hardstore" }

func (g *gatedEngine) Backup(_ context.Context, destPath string) error {
	return os.WriteFile(destPath, []byte("backup"), 0o600)
}

func (g *gatedEngine) Verify(context.Context, string) error { return nil }

func (g *gatedEngine) Restore(ctx context.Context, srcPath string) error {
	select {
	case g.started <- filepath.Base(srcPath):
	default:
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newServiceRouter(t *testing.T, engine backup.Engine, files ...string) http.Handler {
	t.Helper()

	cfg := backup.DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.Schedule.Enabled = false
	cfg.Schedule.RetentionInterval = 0
	cfg.ProcessLock = false
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(cfg.Dir, f), []byte("backup"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	svc, err := backup.NewService(cfg, engine)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return newTestRouter(t, svc)
}

func TestRestoreBackup_ConcurrentRequestsAgainstService(t *testing.T) {
	t.Parallel()

	engine := &gatedEngine{started: make(chan string, 1), release: make(chan struct{})}
	router := newServiceRouter(t, engine, "a.bak", "b.bak")

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- doRequest(t, router, http.MethodPost, "/backups/restore", `{"fileName":"a.bak","confirmation":"a.bak"}`)
	}()

	select {
	case <-engine.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first restore never reached the engine")
	}

	second := doRequest(t, router, http.MethodPost, "/backups/restore", `{"fileName":"b.bak","confirmation":"b.bak"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("second restore: status = %d, want 409; body %s", second.Code, second.Body.String())
	}

	status := doRequest(t, router, http.MethodGet, "/backups/status", "")
	var st backup.Status
	decodeEnvelope(t, status, &st)
	if st.Operation.State != backup.StateRunning || st.Operation.Kind != backup.OpRestore {
		t.Errorf("status during restore = %+v, want RUNNING RESTORE", st.Operation)
	}

	close(engine.release)

	var rec *httptest.ResponseRecorder
	select {
	case rec = <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first restore did not finish")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("first restore: status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	third := doRequest(t, router, http.MethodPost, "/backups/restore", `{"fileName":"b.bak","confirmation":"b.bak"}`)
	if third.Code != http.StatusOK {
		t.Fatalf("restore after completion: status = %d, want 200; body %s", third.Code, third.Body.String())
	}
}

func TestRestoreBackup_UnknownFileAgainstService(t *testing.T) {
	t.Parallel()

	engine := &gatedEngine{started: make(chan string, 1), release: make(chan struct{})}
	close(engine.release)
	router := newServiceRouter(t, engine, "a.bak")

	rec := doRequest(t, router, http.MethodPost, "/backups/restore", `{"fileName":"missing.bak","confirmation":"missing.bak"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body %s", rec.Code, rec.Body.String())
	}

	var st backup.Status
	decodeEnvelope(t, doRequest(t, router, http.MethodGet, "/backups/status", ""), &st)
	if st.Operation.State != backup.StateIdle {
		t.Errorf("lock state = %s, want IDLE", st.Operation.State)
	}
}

func TestCreateBackup_NamedAgainstService(t *testing.T) {
	t.Parallel()

	engine := &gatedEngine{started: make(chan string, 1), release: make(chan struct{})}
	router := newServiceRouter(t, engine)

	rec := doRequest(t, router, http.MethodPost, "/backups", `{"backupName":"test1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var entries []backup.Entry
	decodeEnvelope(t, doRequest(t, router, http.MethodGet, "/backups", ""), &entries)
	if len(entries) != 1 || entries[0].FileName != "test1.bak" || entries[0].IsAutomatic {
		t.Errorf("entries = %+v, want one manual test1.bak", entries)
	}
}
