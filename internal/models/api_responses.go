// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"count": 3, "totalSizeBytes": 73400320, ...},
//	  "metadata": {
//	    "timestamp": "2026-05-01T12:00:00Z",
//	    "query_time_ms": 4
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {
//	    "code": "OPERATION_IN_PROGRESS",
//	    "message": "restore: BACKUP operation already in progress",
//	    "details": {"fileName": "hardstore_20260501_020000.bak"}
//	  },
//	  "metadata": {"timestamp": "2026-05-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// Fields:
//   - Timestamp: Server time when response was generated (RFC3339 format)
//   - QueryTimeMS: Handler execution time in milliseconds
//   - RequestID: Request identifier echoed from X-Request-ID
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_FAILED: Invalid file name, missing confirmation, bad parameters
//   - NOT_FOUND: Backup file doesn't exist
//   - OPERATION_IN_PROGRESS: Another backup or restore is running
//   - TIMEOUT, ENGINE_FAILURE: The operation failed; see message
//   - MANUAL_INTERVENTION_REQUIRED: A restore timed out and the database state is unknown
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by GET /health.
//
// Status is "healthy" when the database answers a ping and no restore has
// left the database in an unknown state, "degraded" otherwise.
type HealthStatus struct {
	Status                     string  `json:"status"`
	Version                    string  `json:"version"`
	DatabaseEngine             string  `json:"database_engine"`
	DatabaseConnected          bool    `json:"database_connected"`
	ManualInterventionRequired bool    `json:"manual_intervention_required"`
	Uptime                     float64 `json:"uptime"`
}
