// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"not found", notFound("details", "a.bak"), ErrNotFound, true},
		{"wrapped not found", fmt.Errorf("handler: %w", notFound("details", "a.bak")), ErrNotFound, true},
		{"validation vs not found", validationFailed("create", "", "bad"), ErrNotFound, false},
		{"in progress", inProgress("acquire", OperationRecord{Kind: OpBackup}), ErrOperationInProgress, true},
		{"manual intervention", newError(KindManualInterventionRequired, "restore", "x", "m", nil), ErrManualInterventionRequired, true},
		{"plain error", errors.New("boom"), ErrEngineFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := errors.Is(tt.err, tt.sentinel); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_NotEqualToSpecificError(t *testing.T) {
	t.Parallel()

	a := notFound("details", "a.bak")
	b := notFound("details", "b.bak")
	if errors.Is(a, b) {
		t.Error("two specific errors of the same kind should not match each other")
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	t.Parallel()

	err := newError(KindEngineFailure, "create backup", "a.bak", "database backup failed", os.ErrPermission)

	if !errors.Is(err, os.ErrPermission) {
		t.Error("cause not reachable through Unwrap")
	}
	msg := err.Error()
	for _, want := range []string{"create backup", "database backup failed", "a.bak", "permission denied"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q", got)
	}
	if got := KindOf(errors.New("x")); got != "" {
		t.Errorf("KindOf(plain) = %q", got)
	}
	if got := KindOf(fmt.Errorf("wrap: %w", ErrTimeout)); got != KindTimeout {
		t.Errorf("KindOf(wrapped timeout) = %q", got)
	}
}
