package calculator

import (
	"DeclineWatch/internal/model"
)

// ComputeMaxDrawdown scans the series in date order and returns the most negative
// (low - running max high) / running max high, in percent. The running maximum
// includes the current bar, so the peak never follows the trough. Ties keep the
// earliest peak and the earliest trough.
//
// ok is false when the series has fewer than 2 bars or no usable high.
func ComputeMaxDrawdown(series model.PriceSeries) (rec model.DeclineRecord, ok bool) {
	bars := series.Bars
	if len(bars) < 2 {
		return model.DeclineRecord{}, false
	}

	var (
		peak     model.OHLCV
		hasPeak  bool
		worst    float64
		found    bool
		troughAt model.OHLCV
		peakAt   model.OHLCV
	)
	for _, b := range bars {
		if b.High > 0 && (!hasPeak || b.High > peak.High) {
			peak = b
			hasPeak = true
		}
		if !hasPeak {
			continue
		}
		dd := (b.Low - peak.High) / peak.High * 100
		if !found || dd < worst {
			worst = dd
			found = true
			troughAt = b
			peakAt = peak
		}
	}
	if !found {
		return model.DeclineRecord{}, false
	}
	if worst < -100 {
		worst = -100 // negative lows are bad data
	}

	rec = model.DeclineRecord{
		Stock:        series.Stock,
		DrawdownPct:  worst,
		PeakDate:     peakAt.Time,
		TroughDate:   troughAt.Time,
		PeakPrice:    peakAt.High,
		TroughPrice:  troughAt.Low,
		CurrentPrice: bars[len(bars)-1].Close,
	}
	if ret, has := PeriodReturn(bars); has {
		rec.PeriodReturnPct = ret
	}
	if high, low, err := WindowRange(bars); err == nil {
		rec.WindowHigh, rec.WindowLow = high, low
		if pos, err := RangePosition(rec.CurrentPrice, high, low); err == nil {
			rec.RangePosition = pos
		}
	}
	return rec, true
}

// PeriodReturn is the first-to-last close change over the bars, in percent.
func PeriodReturn(bars []model.OHLCV) (float64, bool) {
	if len(bars) < 2 {
		return 0, false
	}
	first, last := bars[0].Close, bars[len(bars)-1].Close
	if first <= 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}
