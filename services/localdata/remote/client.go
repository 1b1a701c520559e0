// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

const (
	// DefaultAttemptTimeout bounds a single network attempt. The timer
	// belongs to that attempt alone and is torn down before the next
	// attempt starts.
	DefaultAttemptTimeout = 5 * time.Second

	// DefaultBackoffDelay is the fixed pause between attempts.
	DefaultBackoffDelay = 1 * time.Second

	// DefaultMaxRetries is the number of retries after the first
	// attempt, so three attempts total.
	DefaultMaxRetries = 2
)

var tracer = otel.Tracer("github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/remote")

// Client wraps calls to the external search API with per-attempt
// timeouts, fixed-delay retries, and typed failure classification.
//
// # Description
//
// Client issues one HTTP request per attempt, each bounded by its own
// timeout context. Transient failures (attempt timeout, transport
// error, 5xx) are retried with a constant backoff until the retry
// budget runs out; 4xx responses and caller cancellation stop
// immediately. The caller receives exactly one outcome per call.
//
// # Thread Safety
//
// Client is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	backoffDelay time.Duration
	maxRetries   int
	limiter      *rate.Limiter
	logger       *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithBackoffDelay overrides the fixed pause between attempts.
func WithBackoffDelay(delay time.Duration) Option {
	return func(c *Client) { c.backoffDelay = delay }
}

// WithMaxRetries overrides the retry budget. Zero means a single
// attempt with no retry.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRateLimit caps outbound attempts at rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithHTTPClient substitutes the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a remote client for the search API at baseURL.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		// Per-attempt deadlines come from the attempt context, not a
		// client-wide timeout.
		httpClient:   &http.Client{},
		timeout:      DefaultAttemptTimeout,
		backoffDelay: DefaultBackoffDelay,
		maxRetries:   DefaultMaxRetries,
		logger:       logger.With("component", "remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do issues a GET against endpoint (a path like "/search/students")
// and returns the raw response body.
//
// # Inputs
//
//   - ctx: caller context; cancellation aborts the call immediately,
//     including any pending backoff wait.
//   - endpoint: path relative to the base URL.
//   - query: optional query parameters, may be nil.
//
// # Outputs
//
//   - []byte: the response body on success.
//   - error: a *TimeoutError, *NetworkError, or *HTTPError once the
//     retry budget is exhausted, or the context error on cancellation.
func (c *Client) Do(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "remote.Do",
		trace.WithAttributes(attribute.String("endpoint", endpoint)))
	defer span.End()

	start := time.Now()
	attempts := 0

	operation := func() ([]byte, error) {
		attempts++
		if attempts > 1 {
			remoteRetries.WithLabelValues(endpoint).Inc()
		}
		return c.attempt(ctx, endpoint, query, attempts)
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.backoffDelay)),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
	)
	remoteLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		remoteRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("remote call failed",
			"endpoint", endpoint, "attempts", attempts, "error", err.Error())
		return nil, err
	}

	remoteRequests.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}

// attempt runs a single bounded request. Its timeout context is
// cancelled before returning so the timer cannot fire during a later
// attempt, and a response arriving after the deadline is discarded.
func (c *Client) attempt(ctx context.Context, endpoint string, query url.Values, attempt int) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The caller cancelled: stop, do not classify as transient.
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Debug("attempt timed out", "endpoint", endpoint, "attempt", attempt)
			return nil, &TimeoutError{Endpoint: endpoint, Timeout: c.timeout, Attempts: attempt}
		}
		return nil, &NetworkError{Endpoint: endpoint, Attempts: attempt, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := &HTTPError{Endpoint: endpoint, Status: resp.StatusCode}
		// Client errors will not improve on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(herr)
		}
		return nil, herr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, &NetworkError{Endpoint: endpoint, Attempts: attempt, Err: err}
	}
	return body, nil
}
