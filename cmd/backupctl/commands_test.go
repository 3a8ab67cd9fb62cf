// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hardstore/internal/backup"
)

// fakeService implements backupService with overridable functions.
type fakeService struct {
	createFn  func(ctx context.Context, opts backup.CreateOptions) (*backup.Entry, error)
	listFn    func(ctx context.Context) ([]backup.Entry, error)
	verifyFn  func(ctx context.Context, fileName string) (*backup.VerificationResult, error)
	restoreFn func(ctx context.Context, fileName, confirmation string) (*backup.RestoreResult, error)
	purgeFn   func(ctx context.Context, days int) (*backup.PurgeResult, error)
	deleteFn  func(ctx context.Context, fileName string) error

	retention int
}

func (f *fakeService) CreateBackup(ctx context.Context, opts backup.CreateOptions) (*backup.Entry, error) {
	if f.createFn != nil {
		return f.createFn(ctx, opts)
	}
	return &backup.Entry{FileName: "hardstore_20260501_020000.bak"}, nil
}

func (f *fakeService) ListBackups(ctx context.Context) ([]backup.Entry, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []backup.Entry{}, nil
}

func (f *fakeService) Info(context.Context) (backup.CatalogInfo, error) {
	return backup.CatalogInfo{}, nil
}

func (f *fakeService) Details(_ context.Context, fileName string) (*backup.Entry, error) {
	return &backup.Entry{FileName: fileName, VerificationStatus: backup.StatusUnverified}, nil
}

func (f *fakeService) Verify(ctx context.Context, fileName string) (*backup.VerificationResult, error) {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, fileName)
	}
	return &backup.VerificationResult{FileName: fileName, Valid: true}, nil
}

func (f *fakeService) Restore(ctx context.Context, fileName, confirmation string) (*backup.RestoreResult, error) {
	if f.restoreFn != nil {
		return f.restoreFn(ctx, fileName, confirmation)
	}
	return &backup.RestoreResult{FileName: fileName}, nil
}

func (f *fakeService) PurgeOlderThan(ctx context.Context, days int) (*backup.PurgeResult, error) {
	if f.purgeFn != nil {
		return f.purgeFn(ctx, days)
	}
	return &backup.PurgeResult{Days: days, Deleted: []string{}, Kept: []string{}}, nil
}

func (f *fakeService) DeleteBackup(ctx context.Context, fileName string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, fileName)
	}
	return nil
}

func (f *fakeService) RetentionDays() int {
	return f.retention
}

// runCLI executes the root command against svc and returns stdout.
func runCLI(t *testing.T, svc *fakeService, args ...string) (string, error) {
	t.Helper()

	closed := false
	open := func(context.Context, string) (backupService, func(), error) {
		return svc, func() { closed = true }, nil
	}

	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err == nil && !closed {
		t.Error("service was not closed after the command")
	}
	return out.String(), err
}

func TestListCommand_JSON(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC)
	svc := &fakeService{
		listFn: func(context.Context) ([]backup.Entry, error) {
			return []backup.Entry{{FileName: "a.bak", CreatedAt: created, SizeBytes: 42, IsAutomatic: true}}, nil
		},
	}

	out, err := runCLI(t, svc, "list", "--json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var entries []backup.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].FileName != "a.bak" || !entries[0].IsAutomatic {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestListCommand_Table(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		listFn: func(context.Context) ([]backup.Entry, error) {
			return []backup.Entry{{FileName: "broken.bak", CreationFailed: true, VerificationStatus: backup.StatusUnverified}}, nil
		},
	}

	out, err := runCLI(t, svc, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "broken.bak") || !strings.Contains(out, "failed creation") {
		t.Errorf("table output missing entry details:\n%s", out)
	}
}

func TestCreateCommand_PassesNameHint(t *testing.T) {
	t.Parallel()

	var got backup.CreateOptions
	svc := &fakeService{
		createFn: func(_ context.Context, opts backup.CreateOptions) (*backup.Entry, error) {
			got = opts
			return &backup.Entry{FileName: "test1.bak"}, nil
		},
	}

	if _, err := runCLI(t, svc, "create", "--name", "test1"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if got.NameHint != "test1" || got.Automatic {
		t.Errorf("CreateOptions = %+v, want NameHint=test1 Automatic=false", got)
	}
}

func TestRestoreCommand_PassesConfirmation(t *testing.T) {
	t.Parallel()

	var gotFile, gotConfirm string
	svc := &fakeService{
		restoreFn: func(_ context.Context, fileName, confirmation string) (*backup.RestoreResult, error) {
			gotFile, gotConfirm = fileName, confirmation
			if confirmation != fileName {
				return nil, &backup.Error{Kind: backup.KindValidationFailed, Message: "confirmation mismatch"}
			}
			return &backup.RestoreResult{FileName: fileName}, nil
		},
	}

	if _, err := runCLI(t, svc, "restore", "a.bak", "--confirm", "a.bak"); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if gotFile != "a.bak" || gotConfirm != "a.bak" {
		t.Errorf("Restore(%q, %q), want a.bak twice", gotFile, gotConfirm)
	}

	_, err := runCLI(t, svc, "restore", "a.bak")
	if exitCode(err) != exitValidation {
		t.Errorf("restore without --confirm: exit code %d, want %d (err=%v)", exitCode(err), exitValidation, err)
	}
}

func TestPurgeCommand_Days(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"configured default", []string{"purge"}, 14},
		{"explicit days", []string{"purge", "--days", "3"}, 3},
		{"zero days", []string{"purge", "--days", "0"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := -1
			svc := &fakeService{
				retention: 14,
				purgeFn: func(_ context.Context, days int) (*backup.PurgeResult, error) {
					got = days
					return &backup.PurgeResult{Days: days, Deleted: []string{}, Kept: []string{}}, nil
				},
			}
			if _, err := runCLI(t, svc, tt.args...); err != nil {
				t.Fatalf("purge failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("PurgeOlderThan(%d), want %d", got, tt.want)
			}
		})
	}
}

func TestPurgeCommand_ReportsFailures(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		purgeFn: func(_ context.Context, days int) (*backup.PurgeResult, error) {
			return &backup.PurgeResult{
				Days:    days,
				Deleted: []string{"old.bak"},
				Kept:    []string{"locked.bak", "new.bak"},
				Failed:  []backup.PurgeFailure{{FileName: "locked.bak", Error: "permission denied"}},
			}, nil
		},
	}

	out, err := runCLI(t, svc, "purge", "--days", "1")
	if err == nil {
		t.Fatal("expected an error when a deletion failed")
	}
	if !strings.Contains(out, "locked.bak") {
		t.Errorf("output should name the failed file:\n%s", out)
	}
}

func TestVerifyCommand_InvalidBackupFails(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		verifyFn: func(_ context.Context, fileName string) (*backup.VerificationResult, error) {
			return &backup.VerificationResult{FileName: fileName, Valid: false, Message: "corrupt"}, nil
		},
	}

	out, err := runCLI(t, svc, "verify", "a.bak")
	if err == nil {
		t.Fatal("expected an error for an invalid backup")
	}
	if !strings.Contains(out, "corrupt") {
		t.Errorf("output should include the verification message:\n%s", out)
	}
}

func TestDeleteCommand_NotFound(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		deleteFn: func(context.Context, string) error {
			return &backup.Error{Kind: backup.KindNotFound, FileName: "missing.bak"}
		},
	}

	_, err := runCLI(t, svc, "delete", "missing.bak")
	if exitCode(err) != exitNotFound {
		t.Errorf("exit code %d, want %d", exitCode(err), exitNotFound)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{&backup.Error{Kind: backup.KindValidationFailed}, exitValidation},
		{&backup.Error{Kind: backup.KindNotFound}, exitNotFound},
		{&backup.Error{Kind: backup.KindOperationInProgress}, exitInProgress},
		{&backup.Error{Kind: backup.KindManualInterventionRequired}, exitManualIntervention},
		{&backup.Error{Kind: backup.KindTimeout}, exitFailure},
		{errors.New("plain"), exitFailure},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
