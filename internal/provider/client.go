// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client is the HTTP implementation of API.
//
// Deliberately has no internal timeout or retry logic beyond the rate
// limiter: attempt deadlines and retry budgets are owned by the task
// supervisor wrapping every call, and stacking a second timeout here would
// fight it.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientConfig holds provider client configuration.
type ClientConfig struct {
	// BaseURL of the provider API, without trailing slash.
	BaseURL string

	// Token is sent as a bearer token on every request.
	Token string

	// RequestsPerSecond caps outbound request rate across all concurrent
	// chunk fetches. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Default: 1.
	Burst int
}

// NewClient creates a provider API client.
func NewClient(cfg ClientConfig) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		// No Timeout on the http.Client: per-attempt deadlines arrive via
		// the request context from the task supervisor.
		httpClient: &http.Client{},
		limiter:    limiter,
	}
}

// FetchPoints implements API.
func (c *Client) FetchPoints(ctx context.Context, kind models.MetricKind, r models.TimeRange) ([]RawPoint, error) {
	var resp struct {
		Points []RawPoint `json:"points"`
	}
	query := rangeQuery(r)
	if err := c.doRequest(ctx, "/v1/metrics/"+string(kind), query, &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

// FetchSessionList implements API.
func (c *Client) FetchSessionList(ctx context.Context, r models.TimeRange) ([]RawSession, error) {
	var resp struct {
		Sessions []RawSession `json:"sessions"`
	}
	if err := c.doRequest(ctx, "/v1/sessions", rangeQuery(r), &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// FetchSessionDetail implements API.
func (c *Client) FetchSessionDetail(ctx context.Context, sessionID string) (*RawSessionDetail, error) {
	var resp RawSessionDetail
	if err := c.doRequest(ctx, "/v1/sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchSessionSlice implements API.
func (c *Client) FetchSessionSlice(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]RawPoint, error) {
	var resp struct {
		Points []RawPoint `json:"points"`
	}
	query := rangeQuery(r)
	query.Set("kind", string(kind))
	if err := c.doRequest(ctx, "/v1/sessions/"+url.PathEscape(sessionID)+"/slice", query, &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

// rangeQuery encodes a time range as millisecond query parameters.
func rangeQuery(r models.TimeRange) url.Values {
	query := url.Values{}
	query.Set("start_ms", strconv.FormatInt(r.Start.UnixMilli(), 10))
	query.Set("end_ms", strconv.FormatInt(r.End.UnixMilli(), 10))
	return query
}

// doRequest executes one GET against the provider API and decodes the JSON
// response into result.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		// Context errors pass through unwrapped so the supervisor can
		// classify timeout vs cancellation.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("provider request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	metrics.ProviderRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("provider request %s: unexpected status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("decode provider response %s: %w", path, err)
	}
	return nil
}

// readBodyForError reads at most maxErrorBodySize bytes of a response body
// for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		body = append(body, []byte("\n... (truncated)")...)
	}
	return body
}
