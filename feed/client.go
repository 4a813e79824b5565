// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package feed replays points into a running denstream server.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jcodagnone/denstream/denstream"
	"github.com/jcodagnone/denstream/ingest"
	"github.com/jcodagnone/denstream/spatial"
	"github.com/jcodagnone/denstream/utils/httputils"
	"golang.org/x/time/rate"
)

// ClientOptions configuration for Client.
type ClientOptions struct {
	// BaseURL of the server, e.g. http://localhost:8080
	BaseURL string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Requests per second, 0 means unlimited
	Rate float64

	// Points per request
	BatchSize int

	// Request timeout
	Timeout time.Duration
}

// Metrics counts what a replay did.
type Metrics struct {
	Requests int
	Sent     int
	Failed   int
}

// APIError is a non successful answer from the server.
type APIError struct {
	Status  int
	Kind    string `json:"kind"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Client talks to the HTTP API.
type Client struct {
	client  *http.Client
	options *ClientOptions
	base    *url.URL
	Metrics Metrics
}

// NewClient creates a new client with the provided options.
func NewClient(options *ClientOptions) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}

	base, err := url.Parse(options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", options.BaseURL, err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", options.BaseURL)
	}

	if options.BatchSize <= 0 {
		options.BatchSize = 1
	}

	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		httpLogWriter = os.Stderr
	}

	limit := rate.Inf
	if options.Rate > 0 {
		limit = rate.Limit(options.Rate)
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	var rt http.RoundTripper = &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	rt = &httputils.RateLimitedRoundTripper{
		Transport: rt,
		Limiter:   rate.NewLimiter(limit, 1),
	}

	if options.UserAgent != "" {
		rt = &httputils.AppendRequestHeadersRoundTripper{
			Transport: rt,
			Headers:   map[string]string{"User-Agent": options.UserAgent},
		}
	}

	return &Client{
		client:  &http.Client{Transport: rt, Timeout: options.Timeout},
		options: options,
		base:    base,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reader = bytes.NewReader(data)
	}

	u := c.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Metrics.Requests++

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(resp.Status)
		}

		return apiErr
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Send posts points in batches of BatchSize.
func (c *Client) Send(ctx context.Context, points []spatial.GeoPoint) error {
	for start := 0; start < len(points); start += c.options.BatchSize {
		end := min(start+c.options.BatchSize, len(points))

		batch := make([]ingest.Record, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, ingest.FromGeoPoint(p))
		}

		if err := c.do(ctx, http.MethodPost, "/api/points", batch, nil); err != nil {
			c.Metrics.Failed += len(batch)

			return fmt.Errorf("sending points %d-%d: %w", start, end-1, err)
		}

		c.Metrics.Sent += len(batch)
	}

	return nil
}

// Replay sends points, reporting progress after every batch through
// progress when it is not nil.
func (c *Client) Replay(ctx context.Context, points []spatial.GeoPoint, progress func(sent int)) error {
	for start := 0; start < len(points); start += c.options.BatchSize {
		end := min(start+c.options.BatchSize, len(points))

		if err := c.Send(ctx, points[start:end]); err != nil {
			return err
		}

		if progress != nil {
			progress(end - start)
		}
	}

	return nil
}

// StartMaintenance asks the server to start merging points.
func (c *Client) StartMaintenance(ctx context.Context) (denstream.Stats, error) {
	var stats denstream.Stats
	err := c.do(ctx, http.MethodPost, "/api/maintenance/start", nil, &stats)

	return stats, err
}

// Statistics fetches the engine statistics.
func (c *Client) Statistics(ctx context.Context) (denstream.Stats, error) {
	var stats denstream.Stats
	err := c.do(ctx, http.MethodGet, "/api/statistics", nil, &stats)

	return stats, err
}
