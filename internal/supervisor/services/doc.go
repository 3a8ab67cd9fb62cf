// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package services adapts Hardstore components to suture.Service.

	HTTPServerService       ListenAndServe / Shutdown   -> Serve
	BackupSchedulerService  Start / Stop                -> Serve
	EventListenerService    Run                         -> Serve

Every wrapper blocks in Serve until its context is canceled, returns an
error to request a restart, and implements fmt.Stringer so supervisor logs
name it. EventListenerService returns suture.ErrDoNotRestart once the event
bus has been closed, which only happens during shutdown.
*/
package services
