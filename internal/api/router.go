// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package api serves the daemon's ops surface: health, Prometheus metrics,
// and sync status/trigger. It is bound to localhost by default and carries
// no data-plane endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the ops HTTP handler.
type Router struct {
	handler *Handler
}

// NewRouter creates the ops router over the given sync manager.
func NewRouter(manager SyncManager) *Router {
	return &Router{handler: NewHandler(manager)}
}

// Setup configures all ops routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/sync", func(r chi.Router) {
		r.Get("/status", router.handler.SyncStatus)
		r.Post("/trigger", router.handler.SyncTrigger)
	})

	return r
}
