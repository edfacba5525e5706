// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/vitalsync/internal/models"
)

func testRange() models.TimeRange {
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return models.TimeRange{Start: start, End: start.Add(24 * time.Hour)}
}

func TestClientFetchPoints(t *testing.T) {
	t.Run("decodes points and sends auth and range", func(t *testing.T) {
		r := testRange()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/v1/metrics/calories" {
				t.Errorf("path = %s, want /v1/metrics/calories", req.URL.Path)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("Authorization = %q", got)
			}
			q := req.URL.Query()
			if q.Get("start_ms") == "" || q.Get("end_ms") == "" {
				t.Error("missing start_ms/end_ms query parameters")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"points":[{"start_ms":1710028800000,"value":12.5}]}`))
		}))
		defer srv.Close()

		client := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"})
		points, err := client.FetchPoints(context.Background(), models.KindCalories, r)
		if err != nil {
			t.Fatalf("FetchPoints() error = %v", err)
		}
		if len(points) != 1 || points[0].Value != 12.5 {
			t.Errorf("FetchPoints() = %+v, want one point with value 12.5", points)
		}
	})

	t.Run("non-200 is a genuine error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"})
		_, err := client.FetchPoints(context.Background(), models.KindSteps, testRange())
		if err == nil {
			t.Fatal("FetchPoints() = nil, want error")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			t.Error("HTTP error misreported as a timeout")
		}
	})

	t.Run("context deadline passes through unwrapped", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)

		client := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.FetchPoints(ctx, models.KindCalories, testRange())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("FetchPoints() error = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestClientSessions(t *testing.T) {
	t.Run("session list round-trips", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/v1/sessions" {
				t.Errorf("path = %s", req.URL.Path)
			}
			_, _ = w.Write([]byte(`{"sessions":[{"id":"s1","title":"Run","activity_type":"running","start_ms":1,"end_ms":2}]}`))
		}))
		defer srv.Close()

		client := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"})
		sessions, err := client.FetchSessionList(context.Background(), testRange())
		if err != nil {
			t.Fatalf("FetchSessionList() error = %v", err)
		}
		if len(sessions) != 1 || sessions[0].ID != "s1" {
			t.Errorf("FetchSessionList() = %+v", sessions)
		}
	})

	t.Run("session slice includes the kind parameter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/v1/sessions/s1/slice" {
				t.Errorf("path = %s", req.URL.Path)
			}
			if got := req.URL.Query().Get("kind"); got != "heart_rate" {
				t.Errorf("kind = %q, want heart_rate", got)
			}
			_, _ = w.Write([]byte(`{"points":[]}`))
		}))
		defer srv.Close()

		client := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"})
		if _, err := client.FetchSessionSlice(context.Background(), "s1", models.KindHeartRate, testRange()); err != nil {
			t.Fatalf("FetchSessionSlice() error = %v", err)
		}
	})
}
