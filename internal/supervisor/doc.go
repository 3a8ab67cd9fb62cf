// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package supervisor runs Hardstore's long-lived services under suture v4.

	hardstore
	├── backup-layer
	│   └── BackupSchedulerService   daily backup + retention sweep
	├── events-layer
	│   └── EventListenerService     log handler, recent-event recorder
	└── api-layer
	    └── HTTPServerService        /backups, /health, /metrics

Crashed services restart with suture's backoff; each layer counts failures
on its own. Supervisor events are logged through sutureslog on top of the
zerolog slog adapter:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddBackupService(services.NewBackupSchedulerService(backupService))
	tree.AddEventService(services.NewEventListenerService(listener))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Backup and restore operations themselves are not supervised services. They
run on request goroutines under the backup package's operation lock; the
tree only owns the timers that start them.
*/
package supervisor
