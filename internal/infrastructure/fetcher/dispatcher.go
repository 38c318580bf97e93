package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"CrawlPipe/internal/config"
	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/ports"
)

// Dispatcher fans a URL batch out over a capped number of concurrent fetch
// sessions. Admission is gated twice: a hard session cap, and a heap-budget
// check polled while memory pressure is high. A shared pacer spaces request
// starts and the rate limiter adds randomized per-request delay with
// escalating backoff on 429/503.
type Dispatcher struct {
	fetcher       ports.Fetcher
	limiter       *RateLimiter
	pacer         *rate.Limiter
	logger        *slog.Logger
	maxSessions   int
	memoryBudget  uint64
	memoryPercent float64
	checkInterval time.Duration
}

var _ ports.BatchFetcher = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher from fetch configuration.
func NewDispatcher(f ports.Fetcher, cfg config.FetchConfig, logger *slog.Logger) *Dispatcher {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 5
	}

	// Space request starts at the low end of the configured delay band so
	// bursts from freed sessions cannot collapse into simultaneous hits.
	every := time.Duration(cfg.BaseDelayLow * float64(time.Second))
	if every <= 0 {
		every = time.Second
	}

	return &Dispatcher{
		fetcher:       f,
		limiter:       NewRateLimiter(cfg.BaseDelayLow, cfg.BaseDelayHigh, cfg.MaxDelay, cfg.MaxRetries),
		pacer:         rate.NewLimiter(rate.Every(every), maxSessions),
		logger:        logger,
		maxSessions:   maxSessions,
		memoryBudget:  uint64(cfg.MemoryBudgetMB) << 20,
		memoryPercent: cfg.MemoryPercent,
		checkInterval: cfg.CheckIntervalDuration(),
	}
}

// FetchMany fetches every URL, honoring the session cap and memory gate,
// and returns one result per input URL in input order.
func (d *Dispatcher) FetchMany(ctx context.Context, urls []string) []domain.FetchResult {
	results := make([]domain.FetchResult, len(urls))
	sem := make(chan struct{}, d.maxSessions)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = domain.FetchResult{URL: u, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			if err := d.waitForMemory(ctx); err != nil {
				results[i] = domain.FetchResult{URL: u, Err: err}
				return
			}

			content, err := d.fetchWithRetry(ctx, u)
			results[i] = domain.FetchResult{URL: u, Content: content, Err: err}
		}(i, u)
	}

	wg.Wait()
	return results
}

func (d *Dispatcher) fetchWithRetry(ctx context.Context, url string) (string, error) {
	for attempt := 0; ; attempt++ {
		if err := d.pacer.Wait(ctx); err != nil {
			return "", err
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return "", err
		}

		content, err := d.fetcher.Fetch(ctx, url)
		if err == nil {
			return content, nil
		}

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !d.limiter.Retryable(httpErr.StatusCode) {
			return "", err
		}
		if attempt >= d.limiter.MaxRetries() {
			if d.logger != nil {
				d.logger.Warn("retries exhausted", "url", url, "status", httpErr.StatusCode)
			}
			return "", err
		}

		if d.logger != nil {
			d.logger.Debug("throttled, backing off", "url", url, "status", httpErr.StatusCode, "attempt", attempt+1)
		}
		if err := d.limiter.BackoffWait(ctx, attempt); err != nil {
			return "", err
		}
	}
}

// waitForMemory blocks while the process heap sits above the configured
// share of the memory budget, re-checking at the poll interval.
func (d *Dispatcher) waitForMemory(ctx context.Context) error {
	if d.memoryBudget == 0 || d.memoryPercent <= 0 {
		return nil
	}

	threshold := uint64(float64(d.memoryBudget) * d.memoryPercent / 100.0)
	for {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		if stats.HeapAlloc < threshold {
			return nil
		}

		if d.logger != nil {
			d.logger.Debug("memory pressure, delaying session",
				"heap", stats.HeapAlloc, "threshold", threshold)
		}
		if err := sleepCtx(ctx, d.checkInterval); err != nil {
			return err
		}
	}
}
