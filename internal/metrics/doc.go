// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto at
package initialisation and are exposed by the server at /metrics.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Database engine statement timing and errors
  - Backup and restore operations, verification and retention
  - The lifecycle event bus and its circuit breaker

# Available Metrics

HTTP Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Requests in flight (gauge)
  - api_rate_limit_hits_total: Rate limited requests (counter)

Backup Metrics:
  - backup_operations_total: Finished operations (counter)
    Labels: kind (BACKUP, RESTORE), result (success, failure)
  - backup_operation_duration_seconds: Operation duration (histogram)
  - backup_operation_in_progress: 1 while an operation runs (gauge)
  - backup_catalog_entries / backup_catalog_size_bytes: Catalog size (gauges)
  - backup_verifications_total: Verification outcomes (counter)
    Labels: result (valid, invalid, timeout)
  - backup_retention_deleted_total / backup_retention_failures_total (counters)
  - backup_scheduled_skipped_total: Scheduled runs not performed (counter)
    Labels: reason (busy, missed)
  - backup_manual_intervention_required: 1 after a timed-out restore (gauge)

Alerting on backup_manual_intervention_required == 1 is strongly
recommended; the database state is unknown until an operator acts.

# Usage

	metrics.RecordBackupOperation("BACKUP", "success", elapsed)
	metrics.SetManualInterventionRequired(true)

# Thread Safety

All functions are safe for concurrent use; Prometheus collectors are
internally synchronised.
*/
package metrics
