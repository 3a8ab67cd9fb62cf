// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"fmt"
	"strings"
	"time"
)

const (
	// maxFileNameLength keeps names well under common filesystem limits once
	// the sidecar and partial-file decorations are added.
	maxFileNameLength = 128

	fileTimestampFormat = "20060102_150405"
	partialSuffix       = ".partial"
)

// validateFileName checks a name received from a caller that refers to an
// existing backup. It never rewrites the name.
func validateFileName(op, name string) error {
	switch {
	case name == "":
		return validationFailed(op, "", "file name is required")
	case len(name) > maxFileNameLength:
		return validationFailed(op, "", fmt.Sprintf("file name exceeds %d characters", maxFileNameLength))
	case strings.ContainsAny(name, "/\\\x00"):
		return validationFailed(op, name, "file name must not contain path separators")
	case name == "." || name == ".." || strings.HasPrefix(name, "."):
		return validationFailed(op, name, "file name must not start with '.'")
	}
	return nil
}

// sanitizeHint turns a caller-supplied backup name into a safe file name
// carrying ext. Path separators are rejected rather than rewritten so that a
// traversal attempt is never silently turned into a valid name.
func sanitizeHint(hint, ext string) (string, error) {
	const op = "create backup"

	hint = strings.TrimSpace(hint)
	if strings.ContainsAny(hint, "/\\\x00") {
		return "", validationFailed(op, hint, "backup name must not contain path separators")
	}
	if hint == "." || hint == ".." || strings.HasPrefix(hint, ".") {
		return "", validationFailed(op, hint, "backup name must not start with '.'")
	}

	var b strings.Builder
	for _, r := range hint {
		if isSafeNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		name += ext
	}
	if len(name) > maxFileNameLength {
		return "", validationFailed(op, "", fmt.Sprintf("backup name exceeds %d characters", maxFileNameLength))
	}
	return name, nil
}

func isSafeNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.'
}

// Labels distinguishing synthesized names by origin.
const (
	labelManual     = ""
	labelAutomatic  = "auto"
	labelPreRestore = "pre_restore"
)

// synthesizeName builds <database>_<timestamp><ext>, or
// <database>_<label>_<timestamp><ext> when label is set.
func synthesizeName(database, label string, at time.Time, ext string) string {
	var b strings.Builder
	for _, r := range database {
		if isSafeNameRune(r) && r != '.' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	db := b.String()
	if db == "" {
		db = "database"
	}

	stamp := at.UTC().Format(fileTimestampFormat)
	if label != "" {
		return fmt.Sprintf("%s_%s_%s%s", db, label, stamp, ext)
	}
	return fmt.Sprintf("%s_%s%s", db, stamp, ext)
}

// withSequence inserts _n before the extension to resolve a same-second collision.
func withSequence(name, ext string, n int) string {
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
}

// partialName is the hidden file an in-flight backup is written to.
func partialName(fileName string) string {
	return "." + fileName + partialSuffix
}
