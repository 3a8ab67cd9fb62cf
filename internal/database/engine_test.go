// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package database

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/hardstore/internal/backup"
)

var _ backup.Engine = (*Engine)(nil)

func backupTo(t *testing.T, e *Engine) string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "hardstore_20260501_020000.bak")
	if err := e.Backup(context.Background(), dest); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	return dest
}

func TestEngineBackupVerifyRestore(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedProducts(t, db)
	e := NewEngine(db, "hardstore")

	if e.Name() != "hardstore" {
		t.Errorf("Name() = %q, want hardstore", e.Name())
	}

	dest := backupTo(t, e)

	// No staging leftovers next to the backup
	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("backup directory has %d entries, want only the backup", len(entries))
	}

	if err := e.Verify(context.Background(), dest); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	// Change the live database after the backup
	exec(t, db,
		`DELETE FROM inventory`,
		`INSERT INTO products (sku, name, category, price_cents) VALUES ('SAW-24', 'Panel saw', 'hand tools', 2499)`,
	)

	if err := e.Restore(context.Background(), dest); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	counts, err := db.TableCounts(context.Background())
	if err != nil {
		t.Fatalf("TableCounts() after restore error = %v", err)
	}
	if counts["products"] != 2 {
		t.Errorf("products = %d, want 2", counts["products"])
	}
	if counts["inventory"] != 1 {
		t.Errorf("inventory = %d, want 1", counts["inventory"])
	}

	// The handle keeps working and no restore leftovers remain
	exec(t, db, `INSERT INTO stock_movements (sku, location, delta, reason) VALUES ('HX-0420', 'aisle-3', -10, 'sale')`)
	if _, err := os.Stat(db.Path() + ".previous"); !os.IsNotExist(err) {
		t.Errorf("previous database should be removed, stat err = %v", err)
	}
}

func TestEngineVerifyRejects(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := NewEngine(db, "hardstore")
	good := backupTo(t, e)
	dir := t.TempDir()

	gzipped := func(name string, payload []byte) string {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	goodBytes, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	truncated := filepath.Join(dir, "truncated.bak")
	if err := os.WriteFile(truncated, goodBytes[:len(goodBytes)/2], 0o600); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "plain.bak")
	if err := os.WriteFile(plain, []byte("not a backup at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.bak")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"not gzip", plain, "not a compressed DuckDB backup"},
		{"empty file", empty, "not a compressed DuckDB backup"},
		{"truncated", truncated, "truncated or corrupt"},
		{"gzip of text", gzipped("text.bak", []byte("hello hardware store")), "not a DuckDB database file"},
		{"gzip of fake header", gzipped("fake.bak", append(make([]byte, 8), []byte("DUCKjunkjunkjunk")...)), "read-only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := e.Verify(context.Background(), tt.path)
			if err == nil {
				t.Fatal("Verify() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestEngineVerifyRejectsForeignDatabase(t *testing.T) {
	t.Parallel()

	// A DuckDB file without the Hardstore schema
	foreign := filepath.Join(t.TempDir(), "foreign.duckdb")
	conn, err := openDuckDBFile(foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(`CREATE TABLE widgets (id INTEGER)`); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(`CHECKPOINT`); err != nil {
		t.Fatal(err)
	}
	closeQuietly(conn)

	dest := filepath.Join(t.TempDir(), "foreign.bak")
	if err := compressFile(context.Background(), foreign, dest); err != nil {
		t.Fatalf("compressFile() error = %v", err)
	}

	db := setupTestDB(t)
	e := NewEngine(db, "hardstore")
	err = e.Verify(context.Background(), dest)
	if err == nil || !strings.Contains(err.Error(), "Hardstore schema") {
		t.Errorf("Verify() error = %v, want missing schema", err)
	}
}

func TestEngineRestoreInvalidKeepsLiveData(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedProducts(t, db)
	e := NewEngine(db, "hardstore")

	bad := filepath.Join(t.TempDir(), "bad.bak")
	if err := os.WriteFile(bad, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := e.Restore(context.Background(), bad); err == nil {
		t.Fatal("Restore() of garbage should fail")
	}

	counts, err := db.TableCounts(context.Background())
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	if counts["products"] != 2 {
		t.Errorf("products = %d, want 2 (live data untouched)", counts["products"])
	}

	// Staging directories are cleaned up
	entries, err := os.ReadDir(filepath.Dir(db.Path()))
	if err != nil {
		t.Fatal(err)
	}
	for _, de := range entries {
		if strings.HasPrefix(de.Name(), ".restore-") {
			t.Errorf("staging directory %s left behind", de.Name())
		}
	}
}

func TestEngineRestoreWaitsForSessions(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedProducts(t, db)
	e := NewEngine(db, "hardstore")
	dest := backupTo(t, e)

	held := make(chan struct{})
	release := make(chan struct{})
	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- db.exclusive(context.Background(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	// Staging finishes well within the deadline; the gate never frees up.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := e.Restore(ctx, dest)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Restore() while gate is held = %v, want deadline exceeded", err)
	}

	close(release)
	if err := <-sessionDone; err != nil {
		t.Fatal(err)
	}
	if err := e.Restore(context.Background(), dest); err != nil {
		t.Errorf("Restore() after release error = %v", err)
	}
}

func TestEngineBackupHonoursContext(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := NewEngine(db, "hardstore")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "cancelled.bak")
	if err := e.Backup(ctx, dest); err == nil {
		t.Error("Backup() with cancelled context should fail")
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() after cancelled backup = %v", err)
	}
}

func openDuckDBFile(path string) (*sql.DB, error) {
	return sql.Open("duckdb", path)
}
