package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclineWatch/internal/model"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func seriesOf(hl ...[2]float64) model.PriceSeries {
	bars := make([]model.OHLCV, len(hl))
	for i, p := range hl {
		bars[i] = model.OHLCV{
			Time:  day0.AddDate(0, 0, i),
			Open:  p[0],
			High:  p[0],
			Low:   p[1],
			Close: p[1],
		}
	}
	return model.PriceSeries{Stock: model.Stock{Code: "005930", Name: "삼성전자", Market: model.MarketKOSPI}, Bars: bars}
}

func TestComputeMaxDrawdown_Example(t *testing.T) {
	rec, ok := ComputeMaxDrawdown(seriesOf([2]float64{10, 10}, [2]float64{10, 10}, [2]float64{5, 4}))
	require.True(t, ok)

	assert.InDelta(t, -60.0, rec.DrawdownPct, 1e-9)
	assert.Equal(t, day0, rec.PeakDate)
	assert.Equal(t, day0.AddDate(0, 0, 2), rec.TroughDate)
	assert.Equal(t, 10.0, rec.PeakPrice)
	assert.Equal(t, 4.0, rec.TroughPrice)
	assert.Equal(t, "005930", rec.Stock.Code)
}

func TestComputeMaxDrawdown_StrictlyIncreasing(t *testing.T) {
	rec, ok := ComputeMaxDrawdown(seriesOf(
		[2]float64{10, 10}, [2]float64{11, 11}, [2]float64{12, 12}, [2]float64{13, 13},
	))
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.DrawdownPct)
	assert.InDelta(t, 30.0, rec.PeriodReturnPct, 1e-9)
	assert.Equal(t, 13.0, rec.CurrentPrice)
}

func TestComputeMaxDrawdown_TooShort(t *testing.T) {
	_, ok := ComputeMaxDrawdown(seriesOf())
	assert.False(t, ok)

	_, ok = ComputeMaxDrawdown(seriesOf([2]float64{10, 9}))
	assert.False(t, ok)
}

func TestComputeMaxDrawdown_PeakBeforeTrough(t *testing.T) {
	// Low after the second peak is deeper than anything before it.
	rec, ok := ComputeMaxDrawdown(seriesOf(
		[2]float64{100, 95}, [2]float64{120, 110}, [2]float64{90, 80}, [2]float64{130, 125}, [2]float64{125, 100},
	))
	require.True(t, ok)

	assert.InDelta(t, (80.0-120.0)/120.0*100, rec.DrawdownPct, 1e-9)
	assert.Equal(t, day0.AddDate(0, 0, 1), rec.PeakDate)
	assert.Equal(t, day0.AddDate(0, 0, 2), rec.TroughDate)
	assert.False(t, rec.PeakDate.After(rec.TroughDate))
}

func TestComputeMaxDrawdown_TieKeepsEarliestTrough(t *testing.T) {
	rec, ok := ComputeMaxDrawdown(seriesOf(
		[2]float64{10, 10}, [2]float64{10, 5}, [2]float64{10, 8}, [2]float64{10, 5},
	))
	require.True(t, ok)

	assert.InDelta(t, -50.0, rec.DrawdownPct, 1e-9)
	assert.Equal(t, day0.AddDate(0, 0, 1), rec.TroughDate)
	assert.Equal(t, day0, rec.PeakDate)
}

func TestComputeMaxDrawdown_Bounds(t *testing.T) {
	cases := []model.PriceSeries{
		seriesOf([2]float64{50, 1}, [2]float64{49, 48}),
		seriesOf([2]float64{5, 5}, [2]float64{6, 4}, [2]float64{7, 3}),
		seriesOf([2]float64{1, 1}, [2]float64{1000, 999}),
		seriesOf([2]float64{10, 0}, [2]float64{10, 0}),
	}
	for i, s := range cases {
		rec, ok := ComputeMaxDrawdown(s)
		require.True(t, ok, "case %d", i)
		assert.GreaterOrEqual(t, rec.DrawdownPct, -100.0, "case %d", i)
		assert.False(t, rec.PeakDate.After(rec.TroughDate), "case %d", i)
	}
}

func TestComputeMaxDrawdown_SkipsNonPositiveHighs(t *testing.T) {
	rec, ok := ComputeMaxDrawdown(seriesOf([2]float64{0, 0}, [2]float64{20, 18}, [2]float64{19, 15}))
	require.True(t, ok)
	assert.InDelta(t, -25.0, rec.DrawdownPct, 1e-9)
	assert.Equal(t, day0.AddDate(0, 0, 1), rec.PeakDate)

	_, ok = ComputeMaxDrawdown(seriesOf([2]float64{0, 0}, [2]float64{0, 0}))
	assert.False(t, ok)
}

func TestPeriodReturn(t *testing.T) {
	bars := []model.OHLCV{{Close: 200}, {Close: 150}, {Close: 180}}
	ret, ok := PeriodReturn(bars)
	require.True(t, ok)
	assert.InDelta(t, -10.0, ret, 1e-9)

	_, ok = PeriodReturn(bars[:1])
	assert.False(t, ok)

	_, ok = PeriodReturn([]model.OHLCV{{Close: 0}, {Close: 5}})
	assert.False(t, ok)
}
