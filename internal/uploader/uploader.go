// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package uploader sends filtered sync payloads to the backend ingest API.
//
// The uploader is a boundary collaborator for the sync managers: a payload
// either lands in full or the whole upload fails, and an upload failure
// must leave sync metadata untouched so the next pass retries the same
// data. The backend is expected to treat re-posted payloads idempotently.
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
)

// Point is one data point in wire form.
type Point struct {
	StartMillis  int64   `json:"start_ms"`
	EndMillis    int64   `json:"end_ms,omitempty"`
	Value        float64 `json:"value"`
	Min          float64 `json:"min,omitempty"`
	Max          float64 `json:"max,omitempty"`
	DataSourceID string  `json:"data_source_id,omitempty"`
}

// IntradayBatch is one fixed-duration batch of intraday points.
type IntradayBatch struct {
	Metric            models.MetricKind `json:"metric"`
	WindowStartMillis int64             `json:"window_start_ms"`
	WindowEndMillis   int64             `json:"window_end_ms"`
	Points            []Point           `json:"points"`
}

// Session is one exercise session with its per-subtype point lists.
type Session struct {
	ID           string             `json:"id"`
	Title        string             `json:"title,omitempty"`
	ActivityType string             `json:"activity_type"`
	StartMillis  int64              `json:"start_ms"`
	EndMillis    int64              `json:"end_ms"`
	Points       map[string][]Point `json:"points,omitempty"`
}

// ProfileValue is one body-profile measurement.
type ProfileValue struct {
	Field models.MetricKind `json:"field"`
	Value float64           `json:"value"`
}

// Payload is the union of newly-found-different batches and entities across
// all metric kinds in one sync pass.
type Payload struct {
	PassID          string          `json:"pass_id"`
	IntradayBatches []IntradayBatch `json:"intraday_batches,omitempty"`
	Sessions        []Session       `json:"sessions,omitempty"`
	Profile         []ProfileValue  `json:"profile,omitempty"`
}

// Len returns the number of items in the payload.
func (p *Payload) Len() int {
	return len(p.IntradayBatches) + len(p.Sessions) + len(p.Profile)
}

// Empty reports whether there is nothing to upload.
func (p *Payload) Empty() bool {
	return p.Len() == 0
}

// Uploader is the backend upload collaborator.
type Uploader interface {
	Upload(ctx context.Context, payload *Payload) error
}

// HTTPUploader posts payloads to the backend ingest endpoint as JSON.
type HTTPUploader struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPUploader creates a backend upload client.
func NewHTTPUploader(baseURL, token string) *HTTPUploader {
	return &HTTPUploader{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, payload *Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode upload payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/v1/ingest", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", "application/json")

	metrics.UploadPayloadItems.Observe(float64(payload.Len()))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		metrics.UploadRequests.WithLabelValues("failure").Inc()
		return fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		metrics.UploadRequests.WithLabelValues("failure").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upload rejected: status %d: %s", resp.StatusCode, snippet)
	}

	metrics.UploadRequests.WithLabelValues("success").Inc()
	return nil
}
