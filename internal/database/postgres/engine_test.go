// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package postgres

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeTool re-executes the test binary as a stand-in for pg_dump/pg_restore.
type fakeTool struct {
	stdout   string
	stderr   string
	exitCode int
	sleep    bool
	argsFile string
}

func (f fakeTool) command() commandFunc {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, arg...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...) //nolint:gosec // test binary
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"HELPER_STDOUT="+f.stdout,
			"HELPER_STDERR="+f.stderr,
			"HELPER_EXIT="+strconv.Itoa(f.exitCode),
			"HELPER_SLEEP="+strconv.FormatBool(f.sleep),
			"HELPER_ARGS_FILE="+f.argsFile,
		)
		return cmd
	}
}

// TestHelperProcess is not a real test; it is the fake client tool.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	if path := os.Getenv("HELPER_ARGS_FILE"); path != "" {
		_ = os.WriteFile(path, []byte(strings.Join(args, "\n")), 0o600)
	}
	if os.Getenv("HELPER_SLEEP") == "true" {
		time.Sleep(time.Minute)
	}
	fmt.Fprint(os.Stdout, os.Getenv("HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("HELPER_STDERR"))
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT"))
	os.Exit(code)
}

const sampleTOC = `;
; Archive created at 2026-05-01 02:00:00 UTC
;     dbname: hardstore
;
215; 1259 16386 TABLE public inventory hardstore
216; 1259 16390 TABLE public products hardstore
217; 1259 16398 TABLE public stock_movements hardstore
218; 1259 16402 TABLE public suppliers hardstore
3390; 0 16386 TABLE DATA public inventory hardstore
`

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hardstore_20260501_020000.bak")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEngineVerify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		archive string
		tool    fakeTool
		wantErr string
	}{
		{
			name:    "valid archive",
			archive: "PGDMP\x01\x0e\x00",
			tool:    fakeTool{stdout: sampleTOC},
		},
		{
			name:    "wrong magic",
			archive: "-- PostgreSQL database dump",
			tool:    fakeTool{stdout: sampleTOC},
			wantErr: "not a pg_dump custom-format archive",
		},
		{
			name:    "empty file",
			archive: "",
			wantErr: "not a pg_dump custom-format archive",
		},
		{
			name:    "pg_restore rejects archive",
			archive: "PGDMP\x01",
			tool:    fakeTool{stderr: "pg_restore: error: could not read input file: end of file", exitCode: 1},
			wantErr: "could not read input file",
		},
		{
			name:    "missing table",
			archive: "PGDMP\x01",
			tool:    fakeTool{stdout: strings.ReplaceAll(sampleTOC, "TABLE public products", "TABLE public widgets")},
			wantErr: "missing table products",
		},
		{
			name:    "no tables",
			archive: "PGDMP\x01",
			tool:    fakeTool{stdout: ";\n; empty\n"},
			wantErr: "lists no tables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := &Engine{restorePath: "pg_restore", command: tt.tool.command()}
			err := e.Verify(context.Background(), writeArchive(t, tt.archive))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestEngineVerifyPassesArchiveToList(t *testing.T) {
	t.Parallel()

	argsFile := filepath.Join(t.TempDir(), "args")
	archive := writeArchive(t, "PGDMP\x01")
	e := &Engine{restorePath: "/usr/lib/postgresql/17/bin/pg_restore", command: fakeTool{stdout: sampleTOC, argsFile: argsFile}.command()}
	if err := e.Verify(context.Background(), archive); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Split(string(raw), "\n")
	want := []string{"/usr/lib/postgresql/17/bin/pg_restore", "--list", archive}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestRunKillsToolOnTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := run(ctx, fakeTool{sleep: true}.command(), "pg_dump", "pg_dump", "--format=custom")
	if err == nil || !strings.Contains(err.Error(), "interrupted") {
		t.Fatalf("run() error = %v, want interrupted", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("run() returned after %v, tool was not killed", elapsed)
	}
}

func TestTailBuffer(t *testing.T) {
	t.Parallel()

	b := &tailBuffer{limit: 8}
	for _, s := range []string{"abc", "defgh", "ijkl"} {
		if n, err := b.Write([]byte(s)); err != nil || n != len(s) {
			t.Fatalf("Write(%q) = %d, %v", s, n, err)
		}
	}
	if got := b.String(); got != "efghijkl" {
		t.Errorf("String() = %q, want efghijkl", got)
	}
}
