// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package postgres

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/hardstore/internal/metrics"
)

// stderrTail bounds how much client tool output ends up in error messages.
const stderrTail = 4 << 10

// commandFunc builds client tool commands. Tests replace it.
type commandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// run executes a client tool, killing its whole process group when ctx is
// done, and returns its standard output.
func run(ctx context.Context, command commandFunc, op, name string, args ...string) (string, error) {
	cmd := command(ctx, name, args...)
	configureProcess(cmd)
	cmd.WaitDelay = 5 * time.Second

	var stdout strings.Builder
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	metrics.RecordDBQuery(engineName, op, time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s interrupted: %w", name, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.String(), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
