// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package events carries backup lifecycle events from the backup service to
// in-process consumers.
//
// Bus implements backup.Notifier on top of a watermill gochannel pub/sub.
// Publishing goes through a gobreaker circuit breaker; an event that cannot
// be published is counted and dropped, never returned to the operation.
//
// Listener is run by the supervision tree. It decodes each message and
// passes it to handlers such as LogHandler, which raises the alert=true log
// line for manual intervention, and Recorder, which keeps recent events for
// GET /backups/events.
package events
