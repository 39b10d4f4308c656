package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"DeclineWatch/internal/calculator"
	"DeclineWatch/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.OHLCV // by stock code
	Errs  map[string]error         // by stock code

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, stock model.Stock, days int) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err, ok := m.Errs[stock.Code]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[stock.Code]; ok {
		return TrimToWindow(bars, days), nil
	}
	return generateMockBars(m.Price, days), nil
}

// Calls returns how many fetches were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -count)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Options controls one analysis run.
type Options struct {
	Selection  model.MarketSelection
	PeriodDays int // lookback window in trading days
	SampleSize int
	Workers    int
	TopN       int
	Buckets    calculator.Buckets
	Timeout    time.Duration // overall batch budget, 0 for none
}

// Collector orchestrates listing, parallel fetching and decline statistics.
type Collector struct {
	Fetcher Fetcher
	Listing ListingSource
	Opts    Options

	now   func() time.Time
	newID func() string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, listing ListingSource, opts Options) *Collector {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if len(opts.Buckets.Labels()) == 0 {
		opts.Buckets = calculator.DefaultBuckets
	}
	return &Collector{
		Fetcher: fetcher,
		Listing: listing,
		Opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

type outcome struct {
	record    *model.DeclineRecord
	exclusion *model.Exclusion
}

// Collect runs one full analysis. Only a listing failure aborts the run;
// per-stock failures are returned as exclusions.
func (c *Collector) Collect(ctx context.Context) (*model.AnalysisResult, error) {
	if c.Opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Opts.Timeout)
		defer cancel()
	}

	result := &model.AnalysisResult{
		RunID:      c.newID(),
		StartedAt:  c.now(),
		Selection:  c.Opts.Selection,
		PeriodDays: c.Opts.PeriodDays,
	}

	stocks, err := c.selectStocks(ctx)
	if err != nil {
		return nil, err
	}
	result.Requested = len(stocks)
	log.Printf("[INFO] analysis %s: %d stocks, %d-day window, source %s",
		result.RunID, len(stocks), c.Opts.PeriodDays, c.Fetcher.Name())

	outcomes := make([]outcome, len(stocks))
	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(c.Opts.Workers)
	for i, stock := range stocks {
		i, stock := i, stock
		g.Go(func() error {
			outcomes[i] = c.analyzeOne(ctx, stock)
			if n := done.Add(1); n%10 == 0 {
				log.Printf("[INFO] progress %d/%d (%.1f%%)", n, len(stocks), float64(n)/float64(len(stocks))*100)
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail; exclusions carry the errors

	result.Records = make([]model.DeclineRecord, 0, len(stocks))
	result.Excluded = []model.Exclusion{}
	for _, o := range outcomes {
		switch {
		case o.record != nil:
			result.Records = append(result.Records, *o.record)
		case o.exclusion != nil:
			result.Excluded = append(result.Excluded, *o.exclusion)
		}
	}

	result.Stats = calculator.AggregateStats(result.Records, c.Opts.Buckets)
	result.MarketBreakdown = calculator.AggregateByMarket(result.Records, c.Opts.Buckets)
	result.Top = calculator.RankTop(result.Records, c.Opts.TopN)
	result.FinishedAt = c.now()

	log.Printf("[INFO] analysis %s done: %d analyzed, %d excluded",
		result.RunID, len(result.Records), len(result.Excluded))
	return result, nil
}

func (c *Collector) analyzeOne(ctx context.Context, stock model.Stock) outcome {
	bars, err := c.Fetcher.FetchDailyBars(ctx, stock, c.Opts.PeriodDays)
	if err != nil {
		reason := model.ExcludedFetchFailed
		if errors.Is(err, ErrNoData) {
			reason = model.ExcludedInsufficientData
		}
		log.Printf("[WARN] skip %s (%s): %v", stock.Code, stock.Name, err)
		return outcome{exclusion: &model.Exclusion{Stock: stock, Reason: reason, Message: err.Error()}}
	}

	series := model.PriceSeries{
		Stock:     stock,
		Bars:      TrimToWindow(NormalizeBars(bars), c.Opts.PeriodDays),
		FetchedAt: c.now(),
	}
	rec, ok := calculator.ComputeMaxDrawdown(series)
	if !ok {
		return outcome{exclusion: &model.Exclusion{
			Stock:   stock,
			Reason:  model.ExcludedInsufficientData,
			Message: fmt.Sprintf("%d usable bars", len(series.Bars)),
		}}
	}
	return outcome{record: &rec}
}

// selectStocks takes the head of each listing, as the sample.
func (c *Collector) selectStocks(ctx context.Context) ([]model.Stock, error) {
	type part struct {
		market model.Market
		n      int
	}
	var parts []part
	switch c.Opts.Selection {
	case model.SelectKOSPI:
		parts = []part{{model.MarketKOSPI, c.Opts.SampleSize}}
	case model.SelectKOSDAQ:
		parts = []part{{model.MarketKOSDAQ, c.Opts.SampleSize}}
	case model.SelectBoth:
		half := c.Opts.SampleSize / 2
		parts = []part{{model.MarketKOSPI, half}, {model.MarketKOSDAQ, half}}
	default:
		return nil, fmt.Errorf("unknown market selection %q", c.Opts.Selection)
	}

	var stocks []model.Stock
	for _, p := range parts {
		listed, err := c.Listing.List(ctx, p.market)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", p.market, err)
		}
		if p.n < len(listed) {
			listed = listed[:p.n]
		}
		stocks = append(stocks, listed...)
	}
	return stocks, nil
}
