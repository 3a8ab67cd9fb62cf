// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/hardstore/internal/models"
)

// Version is reported by /health. It is set at build time with -ldflags.
var Version = "dev"

// healthPingTimeout bounds the database ping behind /health.
const healthPingTimeout = 2 * time.Second

// Health handles health check requests. A restore that timed out leaves the
// service degraded until the operator intervenes; a failed database ping
// makes it unavailable.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := false
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		dbConnected = h.db.Ping(ctx) == nil
		cancel()
	}

	intervention := h.backups != nil && h.backups.Status().ManualInterventionRequired

	status := "healthy"
	code := http.StatusOK
	switch {
	case !dbConnected:
		status = "unavailable"
		code = http.StatusServiceUnavailable
	case intervention:
		status = "degraded"
	}

	engine := ""
	if h.config != nil {
		engine = h.config.Database.Engine
	}

	respondJSON(w, code, &models.APIResponse{
		Status: "success",
		Data: models.HealthStatus{
			Status:                     status,
			Version:                    Version,
			DatabaseEngine:             engine,
			DatabaseConnected:          dbConnected,
			ManualInterventionRequired: intervention,
			Uptime:                     time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}
