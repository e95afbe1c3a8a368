package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"presence-sync-service/internal/config"
	"presence-sync-service/internal/metrics"
)

// retryableStatuses are the transient Graph responses worth retrying.
// Everything else fails the request immediately.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client wraps Graph GET/POST calls with rate-limit aware retry and
// exponential backoff. It is the single point of network-failure policy:
// callers above it see either parsed JSON or an error that is fatal for the
// current cycle.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	batchSize      int
	logger         *zap.Logger
	metrics        *metrics.Metrics

	// sleep is swapped out in tests to avoid real waits
	sleep func(time.Duration)
}

// NewClient creates a Graph API client from the Graph configuration
func NewClient(cfg *config.GraphConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff(),
		batchSize:      cfg.BatchSize,
		logger:         logger,
		metrics:        m,
		sleep:          time.Sleep,
	}
}

// Get issues an authenticated GET and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, rawURL, token string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, rawURL, token, params, nil, out)
}

// PostJSON issues an authenticated POST with a JSON payload and decodes the
// JSON response into out
func (c *Client) PostJSON(ctx context.Context, rawURL, token string, payload, out interface{}) error {
	return c.do(ctx, http.MethodPost, rawURL, token, nil, payload, out)
}

func (c *Client) do(ctx context.Context, method, rawURL, token string, query url.Values, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestURL := rawURL
	if len(query) > 0 {
		requestURL = rawURL + "?" + query.Encode()
	}

	// Deterministic doubling schedule (2s, 4s, 8s, ...); a server-supplied
	// Retry-After hint takes precedence and does not advance the schedule.
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = c.initialBackoff
	schedule.RandomizationFactor = 0
	schedule.Multiplier = 2
	schedule.MaxInterval = 10 * time.Minute
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		startTime := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(startTime)

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		if c.metrics != nil {
			c.metrics.RecordExternalAPICall(requestURL, method, statusCode, duration, err)
		}

		if err != nil {
			return fmt.Errorf("graph %s %s failed: %w", method, rawURL, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read response body: %w", readErr)
		}

		if retryableStatuses[resp.StatusCode] {
			if attempt == c.maxRetries {
				return &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
			}
			delay := c.retryDelay(resp, schedule)
			c.logger.Warn("Graph request throttled, backing off",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Int("status_code", resp.StatusCode),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxRetries),
			)
			c.sleep(delay)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response from %s: %w", rawURL, err)
			}
		}
		return nil
	}

	// Unreachable: the loop always returns on its final attempt
	return &UpstreamError{Status: 0, Body: "retries exhausted"}
}

// retryDelay returns the Retry-After hint when present, otherwise the next
// interval from the exponential schedule
func (c *Client) retryDelay(resp *http.Response, schedule *backoff.ExponentialBackOff) time.Duration {
	if hint := resp.Header.Get("Retry-After"); hint != "" {
		if seconds, err := strconv.ParseFloat(hint, 64); err == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return schedule.NextBackOff()
}
