package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclineWatch/internal/calculator"
	"DeclineWatch/internal/model"
)

var testStart = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

func barsHL(hl ...[2]float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(hl))
	for i, p := range hl {
		bars[i] = model.OHLCV{Time: testStart.AddDate(0, 0, i), Open: p[0], High: p[0], Low: p[1], Close: p[1]}
	}
	return bars
}

func testListing() *StaticListing {
	return &StaticListing{Stocks: []model.Stock{
		{Code: "000001", Name: "Alpha", Market: model.MarketKOSPI},
		{Code: "000002", Name: "Beta", Market: model.MarketKOSPI},
		{Code: "000003", Name: "Gamma", Market: model.MarketKOSPI},
		{Code: "100001", Name: "Delta", Market: model.MarketKOSDAQ},
		{Code: "100002", Name: "Epsilon", Market: model.MarketKOSDAQ},
	}}
}

func testOptions(sel model.MarketSelection, sample int) Options {
	return Options{
		Selection:  sel,
		PeriodDays: 30,
		SampleSize: sample,
		Workers:    3,
		TopN:       2,
		Buckets:    calculator.DefaultBuckets,
	}
}

func TestCollect_BothMarkets(t *testing.T) {
	fetcher := &MockFetcher{
		Bars: map[string][]model.OHLCV{
			"000001": barsHL([2]float64{10, 10}, [2]float64{10, 10}, [2]float64{5, 4}), // -60
			"000002": barsHL([2]float64{100, 95}, [2]float64{98, 90}),                 // -10
			"100001": barsHL([2]float64{50, 50}, [2]float64{50, 35}),                  // -30
			"100002": barsHL([2]float64{20, 20}),                                      // too short
		},
	}
	c := NewCollector(fetcher, testListing(), testOptions(model.SelectBoth, 4))
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c.WithClock(func() time.Time { return fixed })

	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, fixed, res.StartedAt)
	assert.Equal(t, 4, res.Requested)
	require.Len(t, res.Records, 3)
	assert.Equal(t, []string{"000001", "000002", "100001"},
		[]string{res.Records[0].Stock.Code, res.Records[1].Stock.Code, res.Records[2].Stock.Code})

	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "100002", res.Excluded[0].Stock.Code)
	assert.Equal(t, model.ExcludedInsufficientData, res.Excluded[0].Reason)

	assert.Equal(t, 3, res.Stats.Count)
	assert.InDelta(t, -100.0/3.0, res.Stats.Mean.Value, 1e-9)
	assert.Equal(t, 1, res.Stats.Histogram["extreme"])
	assert.Equal(t, 1, res.Stats.Histogram["severe"])
	assert.Equal(t, 1, res.Stats.Histogram["moderate"])

	require.Len(t, res.Top, 2)
	assert.Equal(t, "000001", res.Top[0].Stock.Code)
	assert.Equal(t, "100001", res.Top[1].Stock.Code)

	assert.Equal(t, 2, res.MarketBreakdown[model.MarketKOSPI].Count)
	assert.Equal(t, 1, res.MarketBreakdown[model.MarketKOSDAQ].Count)
}

func TestCollect_FetchFailuresAreExcluded(t *testing.T) {
	fetcher := &MockFetcher{
		Price: 1000,
		Errs: map[string]error{
			"000002": errors.New("connection reset"),
			"000003": ErrNoData,
		},
	}
	c := NewCollector(fetcher, testListing(), testOptions(model.SelectKOSPI, 10))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Requested)
	assert.Len(t, res.Records, 1)
	require.Len(t, res.Excluded, 2)
	assert.Equal(t, model.ExcludedFetchFailed, res.Excluded[0].Reason)
	assert.Equal(t, model.ExcludedInsufficientData, res.Excluded[1].Reason)
	assert.Equal(t, 3, fetcher.Calls())
}

func TestCollect_SampleSizeLimitsEachMarket(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 100}, testListing(), testOptions(model.SelectKOSDAQ, 1))
	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Requested)
	assert.Equal(t, "100001", res.Records[0].Stock.Code)
}

func TestCollect_ListingFailureIsFatal(t *testing.T) {
	listing := &StaticListing{Err: errors.New("krx down")}
	c := NewCollector(&MockFetcher{Price: 100}, listing, testOptions(model.SelectBoth, 10))
	_, err := c.Collect(context.Background())
	assert.ErrorContains(t, err, "krx down")
}

func TestCollect_UnknownSelection(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 100}, testListing(), testOptions("nasdaq", 10))
	_, err := c.Collect(context.Background())
	assert.Error(t, err)
}

func TestCollect_EmptyRunHasUndefinedStats(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 100}, &StaticListing{}, testOptions(model.SelectBoth, 10))
	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Stats.Count)
	assert.False(t, res.Stats.Mean.Defined)
	assert.Empty(t, res.Top)
	assert.NotNil(t, res.Excluded)
}

func TestMockFetcher_GeneratesWindow(t *testing.T) {
	f := &MockFetcher{Price: 500}
	bars, err := f.FetchDailyBars(context.Background(), model.Stock{Code: "x"}, 20)
	require.NoError(t, err)
	assert.Len(t, bars, 20)
	assert.True(t, bars[0].Time.Before(bars[19].Time))
}
