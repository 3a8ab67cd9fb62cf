// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestVerify_FreshBackupIsValid(t *testing.T) {
	t.Parallel()

	engine := newMockEngine()
	svc := newTestService(t, engine, nil)
	ctx := context.Background()

	entry, err := svc.CreateBackup(ctx, CreateOptions{NameHint: "fresh"})
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	result, err := svc.Verify(ctx, entry.FileName)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !result.Valid {
		t.Fatalf("Verify() = %+v, want valid", result)
	}
	if result.Checksum == "" || result.CheckedAt.IsZero() {
		t.Errorf("result missing checksum or checkedAt: %+v", result)
	}

	details, _ := svc.Details(ctx, entry.FileName)
	if details.VerificationStatus != StatusValid || details.VerifiedAt == nil {
		t.Errorf("details after verify = %+v, want VALID with VerifiedAt", details)
	}
	if details.Checksum != result.Checksum {
		t.Errorf("cached checksum = %q, want %q", details.Checksum, result.Checksum)
	}
}

func TestVerify_CorruptFileIsInvalidAndUntouched(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMockEngine(), nil)
	ctx := context.Background()

	mod := time.Now().Add(-time.Hour).Truncate(time.Second)
	content := "this is not a backup at all"
	path := writeBackupFile(t, svc.Config().Dir, "corrupt.bak", content, mod)

	result, err := svc.Verify(ctx, "corrupt.bak")
	if err != nil {
		t.Fatalf("Verify() error = %v, want a result", err)
	}
	if result.Valid {
		t.Fatal("Verify() of corrupt file reported valid")
	}
	if !strings.Contains(result.Message, "bad header") {
		t.Errorf("Message = %q, want engine reason", result.Message)
	}

	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, []byte(content)) {
		t.Error("verification modified the file contents")
	}
	info, _ := os.Stat(path)
	if !info.ModTime().Equal(mod) {
		t.Errorf("verification changed mtime: %v -> %v", mod, info.ModTime())
	}

	details, _ := svc.Details(ctx, "corrupt.bak")
	if details.VerificationStatus != StatusInvalid {
		t.Errorf("status = %s, want INVALID", details.VerificationStatus)
	}
}

func TestVerify_TimeoutIsInconclusive(t *testing.T) {
	t.Parallel()

	engine := newMockEngine()
	engine.VerifyFunc = blockUntil(nil, nil)
	svc := newTestService(t, engine, func(c *Config) { c.VerifyTimeout = 50 * time.Millisecond })

	writeBackupFile(t, svc.Config().Dir, "slow.bak", fakeHeader, time.Time{})

	result, err := svc.Verify(context.Background(), "slow.bak")
	if err != nil {
		t.Fatalf("Verify() error = %v, want a timed-out result", err)
	}
	if result.Valid || result.Message != "verification timed out" {
		t.Errorf("Verify() = %+v, want valid=false \"verification timed out\"", result)
	}

	details, _ := svc.Details(context.Background(), "slow.bak")
	if details.VerificationStatus != StatusUnverified {
		t.Errorf("status after timeout = %s, want UNVERIFIED", details.VerificationStatus)
	}
}

func TestVerify_CallerCancellationDoesNotAbort(t *testing.T) {
	t.Parallel()

	engine := newMockEngine()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	engine.VerifyFunc = blockUntil(started, release)
	svc := newTestService(t, engine, nil)
	writeBackupFile(t, svc.Config().Dir, "a.bak", fakeHeader, time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *VerificationResult, 1)
	go func() {
		r, _ := svc.Verify(ctx, "a.bak")
		done <- r
	}()

	<-started
	cancel()
	close(release)

	r := <-done
	if r == nil || !r.Valid {
		t.Errorf("Verify() after caller cancel = %+v, want valid", r)
	}
}

func TestVerify_DetectsChangedContent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMockEngine(), nil)
	ctx := context.Background()

	mod := time.Now().Add(-time.Hour).Truncate(time.Second)
	path := writeBackupFile(t, svc.Config().Dir, "a.bak", fakeHeader+"AAAA", mod)

	first, err := svc.Verify(ctx, "a.bak")
	if err != nil || !first.Valid {
		t.Fatalf("first Verify() = %+v, %v", first, err)
	}

	// Same size and mtime, different bytes: only the checksum can tell.
	if err := os.WriteFile(path, []byte(fakeHeader+"BBBB"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}

	second, err := svc.Verify(ctx, "a.bak")
	if err != nil {
		t.Fatalf("second Verify() error = %v", err)
	}
	if second.Valid || !strings.Contains(second.Message, "checksum mismatch") {
		t.Errorf("second Verify() = %+v, want checksum mismatch", second)
	}
}

func TestVerify_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMockEngine(), nil)
	_, err := svc.Verify(context.Background(), "missing.bak")
	assertKind(t, err, KindNotFound)
}
