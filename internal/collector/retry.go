package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"DeclineWatch/internal/model"
)

// RetryFetcher retries transient failures of the wrapped Fetcher with
// exponential backoff. Permanent errors (unknown symbol, no data) return at once.
type RetryFetcher struct {
	Inner      Fetcher
	MaxRetries int
	BaseDelay  time.Duration
}

// NewRetryFetcher wraps f. maxRetries is the number of attempts after the first.
func NewRetryFetcher(f Fetcher, maxRetries int, baseDelay time.Duration) *RetryFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryFetcher{Inner: f, MaxRetries: maxRetries, BaseDelay: baseDelay}
}

func (r *RetryFetcher) Name() string { return r.Inner.Name() }

func (r *RetryFetcher) FetchDailyBars(ctx context.Context, stock model.Stock, days int) ([]model.OHLCV, error) {
	var lastErr error
	for i := 0; i <= r.MaxRetries; i++ {
		bars, err := r.Inner.FetchDailyBars(ctx, stock, days)
		if err == nil {
			return bars, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if i == r.MaxRetries {
			break
		}
		backoff := r.BaseDelay * time.Duration(1<<uint(i))
		log.Printf("[WARN] fetch %s failed (attempt %d/%d): %v, retrying in %v",
			stock.Code, i+1, r.MaxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("all %d attempts exhausted: %w", r.MaxRetries+1, lastErr)
}
