// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package services adapts the daemon's long-lived components to suture's
// Serve lifecycle.
package services

import (
	"context"
)

// StartStopManager matches the sync manager's lifecycle.
//
// Satisfied by *sync.Manager: Start launches the periodic loop and returns
// immediately; Stop blocks until the in-flight pass drains.
type StartStopManager interface {
	Start(ctx context.Context)
	Stop()
}

// SyncService wraps the sync manager as a supervised service, adapting its
// Start/Stop lifecycle to suture's blocking Serve.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates the sync manager wrapper.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{manager: manager, name: "sync-manager"}
}

// Serve implements suture.Service: start the manager, block until the
// context is canceled, then stop it and wait for its goroutines.
func (s *SyncService) Serve(ctx context.Context) error {
	s.manager.Start(ctx)
	<-ctx.Done()
	s.manager.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *SyncService) String() string {
	return s.name
}
