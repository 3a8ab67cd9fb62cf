// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

const verificationTimedOut = "verification timed out"

// Verifier answers "is this backup usable?" without touching the live database.
type Verifier struct {
	catalog *Catalog
	meta    *metaStore
	engine  Engine
	timeout time.Duration
	now     func() time.Time
}

// Verify checksums the file and runs the engine's structural check under the
// verify timeout. An inconclusive (timed-out) check returns valid=false with
// "verification timed out" and leaves the recorded status unchanged.
func (v *Verifier) Verify(ctx context.Context, fileName string) (*VerificationResult, error) {
	const op = "verify backup"

	if _, err := v.catalog.Details(ctx, fileName); err != nil {
		return nil, err
	}
	path := v.catalog.Path(fileName)

	// The caller cannot abort a verification once it has started.
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
	defer cancel()

	info, err := os.Lstat(path)
	if err != nil {
		return nil, newError(KindEngineFailure, op, fileName, "failed to stat backup file", err)
	}

	result := &VerificationResult{FileName: fileName}
	finish := func(valid bool, message string) *VerificationResult {
		result.Valid = valid
		result.Message = message
		result.CheckedAt = v.now().UTC()
		return result
	}

	checksum, err := fileChecksum(vctx, path)
	if err != nil {
		if timedOut(vctx) {
			metrics.RecordBackupVerification("timeout")
			return finish(false, verificationTimedOut), nil
		}
		return nil, newError(KindEngineFailure, op, fileName, "failed to read backup file", err)
	}
	result.Checksum = checksum

	prior, hasPrior := v.meta.read(fileName)
	if hasPrior && prior.checksumFresh(info.Size(), info.ModTime()) && prior.Checksum != checksum {
		finish(false, "checksum mismatch: file contents changed since last verification")
		v.record(fileName, info, checksum, result)
		return result, nil
	}

	engineErr := v.engine.Verify(vctx, path)
	switch {
	case engineErr != nil && timedOut(vctx):
		metrics.RecordBackupVerification("timeout")
		logging.Ctx(ctx).Warn().Str("file", fileName).Dur("timeout", v.timeout).Msg("Backup verification timed out")
		return finish(false, verificationTimedOut), nil
	case engineErr != nil:
		finish(false, engineErr.Error())
	default:
		finish(true, "backup is structurally valid")
	}

	v.record(fileName, info, checksum, result)
	logging.Ctx(ctx).Info().
		Str("file", fileName).
		Bool("valid", result.Valid).
		Str("message", result.Message).
		Msg("Backup verified")
	return result, nil
}

// record persists a conclusive result. The checksum is keyed to the size and
// modification time observed before hashing.
func (v *Verifier) record(fileName string, info os.FileInfo, checksum string, result *VerificationResult) {
	status := StatusInvalid
	label := "invalid"
	if result.Valid {
		status = StatusValid
		label = "valid"
	}
	metrics.RecordBackupVerification(label)

	checkedAt := result.CheckedAt
	err := v.meta.update(fileName, func(m *metadata) {
		m.Checksum = checksum
		m.ChecksumSize = info.Size()
		m.ChecksumModTime = info.ModTime()
		m.Verification = status
		m.VerificationMessage = result.Message
		m.VerifiedAt = &checkedAt
	})
	if err != nil {
		logging.Warn().Err(err).Str("file", fileName).Msg("Failed to record verification result")
	}
	v.catalog.Invalidate()
}

func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// fileChecksum computes the SHA-256 of a file, checking ctx between reads.
//
//nolint:gosec // G304: filePath is from internal backup storage
func fileChecksum(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck // Read-only file

	hasher := sha256.New()
	if _, err := io.Copy(hasher, &contextReader{ctx: ctx, r: file}); err != nil {
		return "", fmt.Errorf("hash backup file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
