package collector

import (
	"context"

	"DeclineWatch/internal/model"
)

// Fetcher defines the interface for fetching daily price bars.
type Fetcher interface {
	// FetchDailyBars returns up to the last `days` trading-day bars, oldest first.
	FetchDailyBars(ctx context.Context, stock model.Stock, days int) ([]model.OHLCV, error)
	Name() string
}
