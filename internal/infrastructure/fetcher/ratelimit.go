package fetcher

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// RateLimiter injects a randomized delay before each request and escalates
// that delay, capped at a maximum, when the server answers 429 or 503.
type RateLimiter struct {
	baseLow    time.Duration
	baseHigh   time.Duration
	maxDelay   time.Duration
	maxRetries int
}

// NewRateLimiter builds a limiter with delays in [low, high] seconds.
func NewRateLimiter(lowSec, highSec, maxSec float64, maxRetries int) *RateLimiter {
	low := time.Duration(lowSec * float64(time.Second))
	high := time.Duration(highSec * float64(time.Second))
	if high < low {
		high = low
	}
	return &RateLimiter{
		baseLow:    low,
		baseHigh:   high,
		maxDelay:   time.Duration(maxSec * float64(time.Second)),
		maxRetries: maxRetries,
	}
}

// MaxRetries reports how many retries a throttled URL gets.
func (r *RateLimiter) MaxRetries() int {
	return r.maxRetries
}

// Wait sleeps for a random base delay, or returns early on context cancel.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return sleepCtx(ctx, r.randomBase())
}

// BackoffWait sleeps for the escalated delay of the given retry attempt:
// base doubled per attempt, capped at maxDelay.
func (r *RateLimiter) BackoffWait(ctx context.Context, attempt int) error {
	delay := r.randomBase()
	for i := 0; i <= attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			delay = r.maxDelay
			break
		}
	}
	return sleepCtx(ctx, delay)
}

// Retryable reports whether a status code should trigger backoff-and-retry.
func (r *RateLimiter) Retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable
}

func (r *RateLimiter) randomBase() time.Duration {
	if r.baseHigh <= r.baseLow {
		return r.baseLow
	}
	return r.baseLow + time.Duration(rand.Int63n(int64(r.baseHigh-r.baseLow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
