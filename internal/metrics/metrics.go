// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Database engine statements (DuckDB, PostgreSQL, SQLite)
// - API endpoint latency and throughput
// - Backup, verification, restore and retention lifecycle
// - Lifecycle event bus circuit breaker

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database statements in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"engine", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of database statement errors",
		},
		[]string{"engine", "operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "api_request_duration_seconds",
			Help: "API request duration in seconds",
			// Backup and restore requests run for minutes
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 600},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Backup Lifecycle Metrics
	BackupOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_operations_total",
			Help: "Total number of finished backup and restore operations",
		},
		[]string{"kind", "result"}, // kind: BACKUP, RESTORE; result: success, failure
	)

	BackupOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_operation_duration_seconds",
			Help:    "Duration of backup and restore operations in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"kind"},
	)

	BackupOperationInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backup_operation_in_progress",
			Help: "1 while a backup or restore of the given kind is running",
		},
		[]string{"kind"},
	)

	BackupCatalogCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_catalog_entries",
			Help: "Number of backup files in the backup directory",
		},
	)

	BackupCatalogBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_catalog_size_bytes",
			Help: "Total size of backup files in bytes",
		},
	)

	BackupVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_verifications_total",
			Help: "Total number of backup verifications by outcome",
		},
		[]string{"result"}, // valid, invalid, timeout
	)

	BackupRetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_retention_deleted_total",
			Help: "Total number of backups deleted by retention purges",
		},
	)

	BackupRetentionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_retention_failures_total",
			Help: "Total number of backups a retention purge failed to delete",
		},
	)

	BackupRetentionLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_retention_last_run_timestamp",
			Help: "Unix timestamp of the last retention purge",
		},
	)

	BackupDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_deleted_total",
			Help: "Total number of backups deleted explicitly",
		},
	)

	BackupScheduledSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_scheduled_skipped_total",
			Help: "Total number of scheduled backups that did not run",
		},
		[]string{"reason"}, // busy, missed
	)

	BackupLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backup_last_success_timestamp",
			Help: "Unix timestamp of the last successful operation of the given kind",
		},
		[]string{"kind"},
	)

	BackupManualInterventionRequired = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_manual_intervention_required",
			Help: "1 when a restore timed out and the database state is unknown",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Lifecycle Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_events_published_total",
			Help: "Total number of lifecycle events published",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_events_dropped_total",
			Help: "Total number of lifecycle events that could not be published",
		},
		[]string{"type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "db_engine"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database statement metric
func RecordDBQuery(engine, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(engine, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(engine, operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by the rate limiter
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordBackupOperation records a finished backup or restore
func RecordBackupOperation(kind, result string, duration time.Duration) {
	BackupOperationsTotal.WithLabelValues(kind, result).Inc()
	BackupOperationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if result == "success" {
		BackupLastSuccess.WithLabelValues(kind).Set(float64(time.Now().Unix()))
	}
}

// SetBackupOperationInProgress flips the in-progress gauge for kind
func SetBackupOperationInProgress(kind string, running bool) {
	if running {
		BackupOperationInProgress.WithLabelValues(kind).Set(1)
	} else {
		BackupOperationInProgress.WithLabelValues(kind).Set(0)
	}
}

// SetBackupCatalogStats updates the catalog gauges after a directory scan
func SetBackupCatalogStats(count int, totalBytes int64) {
	BackupCatalogCount.Set(float64(count))
	BackupCatalogBytes.Set(float64(totalBytes))
}

// RecordBackupVerification records a verification outcome
func RecordBackupVerification(result string) {
	BackupVerifications.WithLabelValues(result).Inc()
}

// RecordRetentionPurge records the outcome of one retention purge
func RecordRetentionPurge(deleted, failed int) {
	BackupRetentionDeleted.Add(float64(deleted))
	BackupRetentionFailures.Add(float64(failed))
	BackupRetentionLastRun.Set(float64(time.Now().Unix()))
}

// RecordBackupDeleted records an explicit single-file deletion
func RecordBackupDeleted() {
	BackupDeletedTotal.Inc()
}

// RecordScheduledBackupSkipped records a scheduled backup that did not run
func RecordScheduledBackupSkipped(reason string) {
	BackupScheduledSkipped.WithLabelValues(reason).Inc()
}

// SetManualInterventionRequired raises or clears the manual intervention alarm
func SetManualInterventionRequired(required bool) {
	if required {
		BackupManualInterventionRequired.Set(1)
	} else {
		BackupManualInterventionRequired.Set(0)
	}
}

// RecordEventPublished records a lifecycle event handed to the event bus
func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventDropped records a lifecycle event the event bus rejected
func RecordEventDropped(eventType string) {
	EventsDropped.WithLabelValues(eventType).Inc()
}
