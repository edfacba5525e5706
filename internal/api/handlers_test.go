// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	syncpkg "github.com/tomtom215/vitalsync/internal/sync"
)

// mockManager implements SyncManager.
type mockManager struct {
	status     syncpkg.Status
	triggerErr error
	triggered  int
}

func (m *mockManager) CurrentStatus() syncpkg.Status { return m.status }

func (m *mockManager) TriggerSync(ctx context.Context) error {
	m.triggered++
	return m.triggerErr
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not json: %v (%q)", err, rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	handler := NewRouter(&mockManager{}).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Error("Success = false")
	}
}

func TestSyncStatus(t *testing.T) {
	mgr := &mockManager{status: syncpkg.Status{Running: true, Families: []string{"intraday"}}}
	handler := NewRouter(mgr).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("Success = false")
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var status syncpkg.Status
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("data is not a Status: %v", err)
	}
	if !status.Running || len(status.Families) != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestSyncTrigger(t *testing.T) {
	t.Run("success returns current status", func(t *testing.T) {
		mgr := &mockManager{}
		handler := NewRouter(mgr).Setup()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if mgr.triggered != 1 {
			t.Errorf("triggered = %d, want 1", mgr.triggered)
		}
	})

	t.Run("sync failure maps to bad gateway", func(t *testing.T) {
		mgr := &mockManager{triggerErr: errors.New("provider down")}
		handler := NewRouter(mgr).Setup()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil))

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success || resp.Error == "" {
			t.Errorf("response = %+v, want failure with error text", resp)
		}
	})

	t.Run("get on trigger is not allowed", func(t *testing.T) {
		handler := NewRouter(&mockManager{}).Setup()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/trigger", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewRouter(&mockManager{}).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body empty")
	}
}
