package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
	"github.com/activity-collector/pkg/ratelimit"
)

const (
	ingestPath = "/api/collector/ingest"
	healthPath = "/api/health"

	// maxErrorBody bounds how much of a failed response is kept for diagnostics
	maxErrorBody = 4096

	maxResponseBody = 1 << 20
)

// RetryObserver is called before sleeping between two attempts. attempt is the
// number of the attempt that just failed, starting at 1.
type RetryObserver func(attempt int, err error, delay time.Duration)

// IngestRequest is the body posted to the ingestion endpoint
type IngestRequest struct {
	SourceType  models.SourceType      `json:"sourceType"`
	CollectedAt time.Time              `json:"collectedAt"`
	Items       []models.CollectedItem `json:"items"`
}

// IngestResponse is the server's accounting of a push
type IngestResponse struct {
	Success       bool `json:"success"`
	ItemsReceived int  `json:"itemsReceived"`
	ItemsInserted int  `json:"itemsInserted"`
}

// Client delivers collection results to the ingestion API
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	retry         config.RetryConfig
	rateLimiter   *ratelimit.MultiLimiter
	observer      RetryObserver
	log           *logger.Logger
}

// NewClient creates a new push client
func NewClient(cfg config.APIConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		apiKey:        cfg.Key,
		httpClient:    &http.Client{},
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		retry:         cfg.Retry,
		rateLimiter:   limiter,
		log:           log.WithComponent("push"),
	}
	if c.retry.Attempts < 1 {
		c.retry.Attempts = 1
	}
	if c.retry.Multiplier < 1 {
		c.retry.Multiplier = 1
	}
	if c.rateLimiter == nil {
		c.rateLimiter = ratelimit.NewMultiLimiter()
	}

	c.observer = func(attempt int, err error, delay time.Duration) {
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.retry.Attempts).
			Dur("retry_in", delay).
			Msg("Push failed, retrying")
	}
	return c
}

// SetRetryObserver replaces the default observer, which logs each retry
func (c *Client) SetRetryObserver(fn RetryObserver) {
	if fn != nil {
		c.observer = fn
	}
}

// PushData sends result to the ingestion endpoint, retrying with exponential
// backoff. After the last attempt the last error is returned. runID is sent
// as X-Collection-Id when not empty.
func (c *Client) PushData(ctx context.Context, result *models.CollectionResult, runID string) (*IngestResponse, error) {
	body, err := json.Marshal(IngestRequest{
		SourceType:  result.SourceType,
		CollectedAt: result.CollectedAt,
		Items:       result.Items,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialDelay
	b.Multiplier = c.retry.Multiplier
	b.RandomizationFactor = 0

	attempt := 0
	operation := func() (*IngestResponse, error) {
		attempt++
		resp, err := c.send(ctx, result.SourceType, runID, body)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.retry.Attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.observer(attempt, err, delay)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("push failed after %d attempts: %w", attempt, err)
	}

	c.log.Debug().
		Str("source_type", string(result.SourceType)).
		Int("attempts", attempt).
		Int("items_received", resp.ItemsReceived).
		Int("items_inserted", resp.ItemsInserted).
		Msg("Push accepted")

	return resp, nil
}

// send performs one attempt bounded by the per-attempt timeout
func (c *Client) send(ctx context.Context, sourceType models.SourceType, runID string, body []byte) (*IngestResponse, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterIngest); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestPath, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Source-Type", string(sourceType))
	req.Header.Set("Content-Type", "application/json")
	if runID != "" {
		req.Header.Set("X-Collection-Id", runID)
	}

	c.log.Debug().
		Str("source_type", string(sourceType)).
		Int("body_length", len(body)).
		Msg("Posting collection result")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &models.PushError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out IngestResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	// A 2xx that reports failure is retried like any other rejected push.
	if !out.Success {
		return nil, &models.PushError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), maxErrorBody)}
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// HealthCheck reports whether GET /api/health answers 2xx within the health
// timeout. It never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.healthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.healthTimeout)
		defer cancel()
	}

	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterHealth); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("Health check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
