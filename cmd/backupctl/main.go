// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/hardstore/internal/app"
	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/events"
	"github.com/tomtom215/hardstore/internal/logging"
)

func main() {
	if err := newRootCmd(openService).Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// openService opens the configured database and a backup service over it.
// The scheduler is never started: the CLI runs single operations only.
func openService(ctx context.Context, configPath string) (backupService, func(), error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Caller: cfg.Logging.Caller,
	})

	settings, err := cfg.BackupSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("backup settings: %w", err)
	}
	settings.Schedule.Enabled = false

	db, err := app.OpenDatabase(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	svc, err := backup.NewService(settings, db.Engine,
		backup.WithNotifier(backup.NotifierFunc(events.LogHandler)),
	)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initializing backup service: %w", err)
	}
	return svc, db.Close, nil
}
