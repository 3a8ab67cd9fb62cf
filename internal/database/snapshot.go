// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
snapshot.go - Backup File Format

A DuckDB backup file is a gzip stream (written with pgzip, so any gzip tool
can read it) of a standalone DuckDB database produced by COPY FROM DATABASE.

Layout of the decompressed database file:
  - bytes 0-7: header checksum
  - bytes 8-11: "DUCK" magic
  - remainder: DuckDB storage

Copies check the caller's context between blocks so a timeout stops a large
backup, verification or restore promptly.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/klauspost/pgzip"
)

const (
	magicOffset     = 8
	compressedBlock = 1 << 20
)

var duckMagic = []byte("DUCK")

// errNotDuckDB marks a decompressed file that is not a DuckDB database.
var errNotDuckDB = errors.New("not a DuckDB database file")

// compressFile writes src to dest as a gzip stream.
func compressFile(ctx context.Context, src, dest string) (err error) {
	in, err := os.Open(src) //nolint:gosec // path built by this package
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer closeQuietly(in)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640) //nolint:gosec // destination chosen by the backup executor
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close backup file: %w", cerr)
		}
	}()

	zw, err := pgzip.NewWriterLevel(out, pgzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err := zw.SetConcurrency(compressedBlock, runtime.GOMAXPROCS(0)); err != nil {
		closeQuietly(zw)
		return fmt.Errorf("failed to configure compressor: %w", err)
	}
	zw.Name = filepath.Base(src)
	zw.ModTime = time.Now()

	if _, err := io.Copy(zw, &ctxReader{ctx: ctx, r: in}); err != nil {
		closeQuietly(zw)
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish compressed stream: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to sync backup file: %w", err)
	}
	return nil
}

// decompressFile expands the gzip stream at src into a new file at dest.
func decompressFile(ctx context.Context, src, dest string) (err error) {
	in, err := os.Open(src) //nolint:gosec // path resolved by the backup catalog
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer closeQuietly(in)

	zr, err := pgzip.NewReader(in)
	if err != nil {
		if errors.Is(err, pgzip.ErrHeader) || errors.Is(err, io.EOF) {
			return fmt.Errorf("not a compressed DuckDB backup: %w", err)
		}
		return fmt.Errorf("failed to read backup file: %w", err)
	}
	defer closeQuietly(zr)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600) //nolint:gosec // staging path built by this package
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close staging file: %w", cerr)
		}
	}()

	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: zr}); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("backup is truncated or corrupt: %w", err)
	}
	return nil
}

// checkMagic reports whether path starts with a DuckDB file header.
func checkMagic(path string) error {
	f, err := os.Open(path) //nolint:gosec // staging path built by this package
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer closeQuietly(f)

	header := make([]byte, magicOffset+len(duckMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return errNotDuckDB
	}
	if !bytes.Equal(header[magicOffset:], duckMagic) {
		return errNotDuckDB
	}
	return nil
}

// ctxReader stops a copy once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
