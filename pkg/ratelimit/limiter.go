package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters for different endpoints
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for an endpoint
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event. Unknown names are not limited.
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("limiter %s: %w", name, err)
	}
	return nil
}

// Limiter names
const (
	LimiterIngest = "ingest"
	LimiterHealth = "health"
)

// NewDefaultLimiter creates a limiter for the ingestion API.
// perMinute <= 0 leaves ingestion unlimited.
func NewDefaultLimiter(perMinute int) *MultiLimiter {
	m := NewMultiLimiter()

	if perMinute > 0 {
		// One source per schedule slot is the common case, so allow a burst
		// equal to the number of source types.
		m.AddLimiter(LimiterIngest, float64(perMinute)/60, 4)
	}

	// Health probes: 1 per second, burst 2
	m.AddLimiter(LimiterHealth, 1, 2)

	return m
}
