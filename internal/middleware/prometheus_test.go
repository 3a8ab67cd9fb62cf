// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/hardstore/internal/metrics"
)

// routed mounts h behind a Chi router so RoutePattern is populated.
func routed(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, PrometheusMetrics(h))
	return r
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	t.Parallel()

	const pattern = "/backups/{fileName}/details"
	h := routed(http.MethodGet, pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, pattern, "200")
	before := testutil.ToFloat64(counter)

	for _, name := range []string{"hardstore_20260501_020000.bak", "hardstore_20260502_020000.bak"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/backups/"+name+"/details", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("api_requests_total delta = %v, want 2", got)
	}
}

func TestPrometheusMetricsRecordsStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		status int
	}{
		{"created", http.MethodPost, http.StatusCreated},
		{"not found", http.MethodDelete, http.StatusNotFound},
		{"conflict", http.MethodPost, http.StatusConflict},
		{"internal error", http.MethodPost, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pattern := "/status-test/" + strconv.Itoa(tt.status)
			h := routed(tt.method, pattern, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, pattern, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			counter := metrics.APIRequestsTotal.WithLabelValues(tt.method, pattern, strconv.Itoa(tt.status))
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Errorf("api_requests_total = %v, want 1", got)
			}
		})
	}
}

func TestPrometheusMetricsImplicitOK(t *testing.T) {
	t.Parallel()

	const pattern = "/implicit-ok"
	h := routed(http.MethodGet, pattern, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, pattern, nil))

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, pattern, "200")
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Errorf("api_requests_total = %v, want 1", got)
	}
}

func TestPrometheusMetricsWithoutRouter(t *testing.T) {
	t.Parallel()

	h := PrometheusMetrics(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("unmatched delta = %v, want 1", got)
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Parallel()

	t.Run("captures first status code only", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		rw := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusAccepted)
		rw.WriteHeader(http.StatusBadRequest)

		if rw.statusCode != http.StatusAccepted {
			t.Errorf("statusCode = %d, want %d", rw.statusCode, http.StatusAccepted)
		}
	})

	t.Run("unwrap returns underlying writer", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		rw := &metricsResponseWriter{ResponseWriter: rec}
		if rw.Unwrap() != http.ResponseWriter(rec) {
			t.Error("Unwrap() did not return the wrapped writer")
		}
	})
}
