// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeHeader marks a structurally valid backup written by mockEngine.
const fakeHeader = "HARDSTORE-FAKE-BACKUP\n"

// mockEngine is a function-field Engine. Nil functions fall back to a simple
// file-based behaviour: Backup writes a header, Verify checks it, Restore
// records the path.
type mockEngine struct {
	name string

	BackupFunc  func(ctx context.Context, destPath string) error
	VerifyFunc  func(ctx context.Context, path string) error
	RestoreFunc func(ctx context.Context, srcPath string) error

	backups  atomic.Int32
	verifies atomic.Int32
	restores atomic.Int32

	mu       sync.Mutex
	restored []string
}

func newMockEngine() *mockEngine {
	return &mockEngine{name: "hardstore"}
}

func (m *mockEngine) Name() string {
	return m.name
}

func (m *mockEngine) Backup(ctx context.Context, destPath string) error {
	m.backups.Add(1)
	if m.BackupFunc != nil {
		return m.BackupFunc(ctx, destPath)
	}
	return os.WriteFile(destPath, []byte(fakeHeader+"payload"), 0o600)
}

func (m *mockEngine) Verify(ctx context.Context, path string) error {
	m.verifies.Add(1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(data, []byte(fakeHeader)) {
		return errors.New("not a hardstore backup: bad header")
	}
	return nil
}

func (m *mockEngine) Restore(ctx context.Context, srcPath string) error {
	m.restores.Add(1)
	if m.RestoreFunc != nil {
		if err := m.RestoreFunc(ctx, srcPath); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.restored = append(m.restored, filepath.Base(srcPath))
	m.mu.Unlock()
	return nil
}

func (m *mockEngine) restoredFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.restored...)
}

// blockUntil returns an engine function that signals started and then waits
// for release or for ctx to end.
func blockUntil(started chan<- struct{}, release <-chan struct{}) func(ctx context.Context, path string) error {
	return func(ctx context.Context, _ string) error {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// testClock is a settable clock shared by every component of a test service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// eventRecorder collects lifecycle events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Notify(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) has(t EventType) bool {
	for _, got := range r.types() {
		if got == t {
			return true
		}
	}
	return false
}

// newTestConfig returns a configuration rooted in a fresh temp directory with
// the scheduler disabled and short timeouts.
func newTestConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "backups")
	cfg.Schedule.Enabled = false
	cfg.Schedule.RetentionInterval = 0
	cfg.CreateTimeout = 5 * time.Second
	cfg.RestoreTimeout = 5 * time.Second
	cfg.VerifyTimeout = 5 * time.Second
	cfg.CatalogCacheTTL = time.Minute
	cfg.VerifyBeforeRestore = true
	cfg.PreRestoreBackup = false
	return cfg
}

// newTestService builds a Service around engine with cfg adjusted by mutate.
func newTestService(t *testing.T, engine Engine, mutate func(*Config), opts ...Option) *Service {
	t.Helper()
	cfg := newTestConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(cfg, engine, opts...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return svc
}

// writeBackupFile places a file directly in the backup directory with the
// given modification time, bypassing the executor.
func writeBackupFile(t *testing.T, dir, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}
	return path
}

// fileNames extracts the names from a listing.
func fileNames(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.FileName)
	}
	return out
}

// diskBackups lists backup files actually present in dir.
func diskBackups(t *testing.T, dir, ext string) map[string]bool {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	out := make(map[string]bool)
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || name[0] == '.' || filepath.Ext(name) != ext {
			continue
		}
		out[name] = true
	}
	return out
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("error kind = %q, want %q (err: %v)", got, want, err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
