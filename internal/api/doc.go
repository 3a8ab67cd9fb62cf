// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package api provides the HTTP surface of the Hardstore backup subsystem.

Routing uses Chi with production middleware from the Chi ecosystem:
go-chi/cors for CORS and go-chi/httprate for per-IP rate limiting. Every
response is wrapped in models.APIResponse.

Endpoints:

	POST   /backups                      create a backup, body {"backupName": "..."} (optional)
	GET    /backups                      list the catalog, newest first
	GET    /backups/info                 count, total size, oldest and newest
	GET    /backups/status               current or last operation
	GET    /backups/events               recent lifecycle events
	GET    /backups/{fileName}/details   one catalog entry
	POST   /backups/{fileName}/verify    verify a backup file
	POST   /backups/restore              restore, body {"fileName": "...", "confirmation": "..."}
	DELETE /backups/old?days=N           retention purge
	DELETE /backups/{fileName}           delete one backup
	GET    /health                       liveness and database connectivity
	GET    /metrics                      Prometheus exposition

Errors carry the backup error kind as their code. NOT_FOUND maps to 404,
OPERATION_IN_PROGRESS to 409, VALIDATION_FAILED to 400, and TIMEOUT,
ENGINE_FAILURE and MANUAL_INTERVENTION_REQUIRED to 500 with the failure
detail in the message.

Create, verify and restore run to completion even when the client goes
away; the server's write timeout must exceed the restore timeout.
*/
package api
