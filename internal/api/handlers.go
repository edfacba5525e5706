// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vitalsync/internal/logging"
	syncpkg "github.com/tomtom215/vitalsync/internal/sync"
)

// SyncManager is the slice of the sync manager the ops handlers need.
type SyncManager interface {
	CurrentStatus() syncpkg.Status
	TriggerSync(ctx context.Context) error
}

// triggerTimeout bounds a manually triggered pass so a hung provider
// cannot pin the ops handler forever.
const triggerTimeout = 10 * time.Minute

// Handler implements the ops endpoints.
type Handler struct {
	manager SyncManager
}

// NewHandler creates the ops handler set.
func NewHandler(manager SyncManager) *Handler {
	return &Handler{manager: manager}
}

// Response is the standard envelope for ops responses.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Err(err).Msg("Failed to encode ops response")
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"status": "ok"}})
}

// SyncStatus reports the sync manager's current state.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.manager.CurrentStatus()})
}

// SyncTrigger runs one sync pass immediately and reports its outcome.
func (h *Handler) SyncTrigger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), triggerTimeout)
	defer cancel()

	if err := h.manager.TriggerSync(ctx); err != nil {
		logging.Err(err).Msg("Manually triggered sync failed")
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.manager.CurrentStatus()})
}
