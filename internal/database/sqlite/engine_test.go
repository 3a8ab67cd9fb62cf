// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/config"
)

var _ backup.Engine = (*Engine)(nil)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Engine:            config.EngineSQLite,
		Name:              "hardstore",
		SQLitePath:        filepath.Join(t.TempDir(), "hardstore.sqlite"),
		SQLiteBusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func exec(t *testing.T, db *DB, queries ...string) {
	t.Helper()
	err := db.WithSession(context.Background(), func(ctx context.Context, conn *sql.DB) error {
		for _, q := range queries {
			if _, err := conn.ExecContext(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("exec error = %v", err)
	}
}

func seed(t *testing.T, db *DB) {
	t.Helper()
	exec(t, db,
		`INSERT INTO suppliers (id, name) VALUES (1, 'Acme Fasteners')`,
		`INSERT INTO products (sku, name, category, supplier_id, price_cents) VALUES ('HX-0420', 'Hex bolt M8x40', 'fasteners', 1, 45)`,
		`INSERT INTO products (sku, name, category, supplier_id, price_cents) VALUES ('WS-0008', 'Washer M8', 'fasteners', 1, 5)`,
		`INSERT INTO inventory (sku, location, quantity) VALUES ('HX-0420', 'aisle-3', 500)`,
	)
}

func backupTo(t *testing.T, e *Engine) string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "hardstore_20260501_020000.bak")
	if err := e.Backup(context.Background(), dest); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	return dest
}

func TestNewCreatesSchema(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	counts, err := db.TableCounts(context.Background())
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	for _, table := range coreTables {
		if n, ok := counts[table]; !ok || n != 0 {
			t.Errorf("counts[%s] = %d, %v; want 0, true", table, n, ok)
		}
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestWithSessionAfterClose(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	err := db.WithSession(context.Background(), func(context.Context, *sql.DB) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("WithSession() error = %v, want ErrClosed", err)
	}
}

func TestEngineBackupVerifyRestore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seed(t, db)
	e := NewEngine(db, "hardstore")
	if e.Name() != "hardstore" {
		t.Errorf("Name() = %q", e.Name())
	}

	path := backupTo(t, e)
	if err := e.Verify(context.Background(), path); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	exec(t, db, `DELETE FROM inventory`, `DELETE FROM products`, `INSERT INTO suppliers (id, name) VALUES (2, 'Later Supplier')`)

	if err := e.Restore(context.Background(), path); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	counts, err := db.TableCounts(context.Background())
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	want := map[string]int64{"suppliers": 1, "products": 2, "inventory": 1, "stock_movements": 0}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("counts[%s] = %d, want %d", table, counts[table], n)
		}
	}
}

func TestEngineVerifyLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seed(t, db)
	e := NewEngine(db, "hardstore")
	path := backupTo(t, e)

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Verify(context.Background(), path); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Verify() modified the backup file")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("backup directory has %d entries after Verify(), want 1", len(entries))
	}
}

func TestEngineVerifyRejects(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	e := NewEngine(db, "hardstore")
	valid, err := os.ReadFile(backupTo(t, e))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		content []byte
		wantErr string
	}{
		{name: "empty", content: nil, wantErr: "not an SQLite database"},
		{name: "text", content: []byte("hardstore backup\n"), wantErr: "not an SQLite database"},
		{name: "truncated", content: valid[:len(valid)/2]},
		{name: "header only", content: append([]byte("SQLite format 3\x00"), make([]byte, 84)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "hardstore_20260501_020000.bak")
			if err := os.WriteFile(path, tt.content, 0o600); err != nil {
				t.Fatal(err)
			}
			err := e.Verify(context.Background(), path)
			if err == nil {
				t.Fatal("Verify() error = nil, want rejection")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestEngineVerifyRejectsForeignDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	foreign := filepath.Join(dir, "other.sqlite")
	conn, err := sql.Open(driverName, foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(`CREATE TABLE suppliers (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()

	e := NewEngine(setupTestDB(t), "hardstore")
	err = e.Verify(context.Background(), foreign)
	if err == nil || !strings.Contains(err.Error(), "missing table products") {
		t.Errorf("Verify() error = %v, want missing table products", err)
	}
}

func TestEngineRestoreInvalidKeepsLiveData(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seed(t, db)
	e := NewEngine(db, "hardstore")

	bad := filepath.Join(t.TempDir(), "hardstore_20260501_020000.bak")
	if err := os.WriteFile(bad, []byte("SQLite format 3\x00garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := e.Restore(context.Background(), bad)
	if err == nil || !strings.Contains(err.Error(), "failed validation") {
		t.Fatalf("Restore() error = %v, want validation failure", err)
	}

	counts, err := db.TableCounts(context.Background())
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	if counts["products"] != 2 {
		t.Errorf("products = %d after rejected restore, want 2", counts["products"])
	}
}

func TestEngineRestoreWaitsForSessions(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seed(t, db)
	e := NewEngine(db, "hardstore")
	path := backupTo(t, e)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = db.WithSession(context.Background(), func(context.Context, *sql.DB) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := e.Restore(ctx, path)
	close(release)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Restore() error = %v, want DeadlineExceeded while a session is open", err)
	}
}

func TestEngineBackupHonoursContext(t *testing.T) {
	t.Parallel()

	e := NewEngine(setupTestDB(t), "hardstore")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "hardstore_20260501_020000.bak")
	if err := e.Backup(ctx, dest); err == nil {
		t.Error("Backup() with cancelled context error = nil")
	}
}
