// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/hardstore/internal/api"
	"github.com/tomtom215/hardstore/internal/app"
	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/config"
	"github.com/tomtom215/hardstore/internal/events"
	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/supervisor"
	"github.com/tomtom215/hardstore/internal/supervisor/services"
)

// eventHistorySize bounds the events served by GET /backups/events.
const eventHistorySize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Hardstore stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	logging.Info().
		Str("engine", cfg.Database.Engine).
		Str("backup_dir", cfg.Backup.Dir).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Hardstore with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := app.OpenDatabase(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logging.Info().Str("engine", db.Kind()).Msg("Database initialized successfully")

	bus := events.NewBus(events.DefaultConfig())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	recorder := events.NewRecorder(eventHistorySize)

	settings, err := cfg.BackupSettings()
	if err != nil {
		return fmt.Errorf("backup settings: %w", err)
	}
	svc, err := backup.NewService(settings, db.Engine,
		backup.WithNotifier(bus),
		backup.WithOperationLogger(logging.NewOperationLogger()),
	)
	if err != nil {
		return fmt.Errorf("backup service: %w", err)
	}

	handler := api.NewHandler(svc, db, cfg)
	handler.SetEventHistory(recorder)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	tree.AddBackupService(services.NewBackupSchedulerService(svc))
	tree.AddEventService(services.NewEventListenerService(events.NewListener(bus, events.LogHandler, recorder.Handle)))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			treeErr = err
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, s := range unstopped {
			logging.Warn().Str("service", s.Name).Msg("Service failed to stop")
		}
	}

	if status := svc.Status(); status.ManualInterventionRequired {
		logging.Warn().Msg("A restore did not complete; the database needs manual attention before the next start")
	}
	return treeErr
}
