// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package middleware provides HTTP instrumentation shared by the API routes.
//
// PrometheusMetrics records api_requests_total, api_request_duration_seconds
// and api_active_requests. It is written as http.HandlerFunc middleware and
// adapted to Chi by the api package:
//
//	r.Use(chiMiddleware(middleware.PrometheusMetrics))
package middleware
