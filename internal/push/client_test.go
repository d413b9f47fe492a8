package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
	"github.com/activity-collector/pkg/ratelimit"
)

func testConfig(url string, attempts int) config.APIConfig {
	return config.APIConfig{
		URL:           url,
		Key:           "secret",
		Timeout:       2 * time.Second,
		HealthTimeout: 200 * time.Millisecond,
		Retry: config.RetryConfig{
			Attempts:     attempts,
			InitialDelay: time.Millisecond,
			Multiplier:   2,
		},
	}
}

func testResult() *models.CollectionResult {
	collectedAt := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	return models.NewSuccessResult(models.SourceTypeGit, []models.CollectedItem{
		{
			SourceType: models.SourceTypeGit,
			Timestamp:  collectedAt.Add(-time.Hour),
			Data:       models.GitCommit{Hash: "abc123", AuthorName: "Jane Doe"},
		},
	}, collectedAt)
}

type retryCall struct {
	attempt int
	delay   time.Duration
}

func TestPushData_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/collector/ingest", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "git", r.Header.Get("X-Source-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "run-1", r.Header.Get("X-Collection-Id"))

		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("warming up"))
			return
		}

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "git", body["sourceType"])
		assert.Equal(t, "2026-10-16T12:00:00Z", body["collectedAt"])
		items := body["items"].([]any)
		assert.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "2026-10-16T11:00:00Z", item["timestamp"])
		assert.Equal(t, "abc123", item["data"].(map[string]any)["hash"])

		_, _ = w.Write([]byte(`{"success":true,"itemsReceived":1,"itemsInserted":1}`))
	}))
	defer server.Close()

	var retries []retryCall
	c := NewClient(testConfig(server.URL, 3), nil, logger.Nop())
	c.SetRetryObserver(func(attempt int, err error, delay time.Duration) {
		var pushErr *models.PushError
		assert.True(t, errors.As(err, &pushErr))
		assert.Equal(t, "warming up", pushErr.Body)
		retries = append(retries, retryCall{attempt: attempt, delay: delay})
	})

	resp, err := c.PushData(context.Background(), testResult(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, &IngestResponse{Success: true, ItemsReceived: 1, ItemsInserted: 1}, resp)
	assert.EqualValues(t, 3, calls.Load())

	require.Len(t, retries, 2)
	assert.Equal(t, 1, retries[0].attempt)
	assert.Equal(t, 2, retries[1].attempt)
	assert.Equal(t, time.Millisecond, retries[0].delay)
	assert.Equal(t, 2*time.Millisecond, retries[1].delay)
}

func TestPushData_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("database down"))
	}))
	defer server.Close()

	retries := 0
	c := NewClient(testConfig(server.URL, 4), nil, logger.Nop())
	c.SetRetryObserver(func(int, error, time.Duration) { retries++ })

	resp, err := c.PushData(context.Background(), testResult(), "")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, 3, retries)

	var pushErr *models.PushError
	require.True(t, errors.As(err, &pushErr))
	assert.Equal(t, http.StatusInternalServerError, pushErr.StatusCode)
	assert.Equal(t, "database down", pushErr.Body)
}

func TestPushData_RejectedWithSuccessStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"success":false,"error":"unknown source"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"itemsReceived":1,"itemsInserted":0}`))
	}))
	defer server.Close()

	var observed error
	c := NewClient(testConfig(server.URL, 2), nil, logger.Nop())
	c.SetRetryObserver(func(_ int, err error, _ time.Duration) { observed = err })

	resp, err := c.PushData(context.Background(), testResult(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 1, resp.ItemsReceived)

	var pushErr *models.PushError
	require.True(t, errors.As(observed, &pushErr))
	assert.Equal(t, http.StatusOK, pushErr.StatusCode)
	assert.Contains(t, pushErr.Body, "unknown source")
}

func TestPushData_RejectedWithSuccessStatusExhaustsAttempts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL, 2), nil, logger.Nop())
	resp, err := c.PushData(context.Background(), testResult(), "")
	assert.Nil(t, resp)

	var pushErr *models.PushError
	require.True(t, errors.As(err, &pushErr))
	assert.Equal(t, `{"success":false}`, pushErr.Body)
}

func TestPushData_SingleAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Empty(t, r.Header.Get("X-Collection-Id"))
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL, 0), nil, logger.Nop())
	_, err := c.PushData(context.Background(), testResult(), "")
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPushData_CancelledContextStopsRetrying(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL, 5)
	cfg.Retry.InitialDelay = time.Second
	c := NewClient(cfg, nil, logger.Nop())

	_, err := c.PushData(ctx, testResult(), "")
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPushData_RateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	limiter := ratelimit.NewMultiLimiter()
	limiter.AddLimiter(ratelimit.LimiterIngest, 0.001, 1)
	c := NewClient(testConfig(server.URL, 1), limiter, logger.Nop())

	_, err := c.PushData(context.Background(), testResult(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.PushData(ctx, testResult(), "")
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "healthy",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/health", r.URL.Path)
				w.WriteHeader(http.StatusNoContent)
			},
			want: true,
		},
		{
			name: "unhealthy",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			want: false,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewClient(testConfig(server.URL, 1), nil, logger.Nop())
			assert.Equal(t, tt.want, c.HealthCheck(context.Background()))
		})
	}
}

func TestHealthCheck_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(testConfig(url, 1), nil, logger.Nop())
	assert.False(t, c.HealthCheck(context.Background()))
}
