package collector

import (
	"math"
	"sort"

	"DeclineWatch/internal/model"
)

// NormalizeBars sorts bars chronologically and drops bars with non-positive or
// non-finite high/low and bars that repeat an earlier date, so dates come out
// strictly increasing. The input slice is not modified.
func NormalizeBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !validPrice(b.High) || !validPrice(b.Low) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && !dedup[n-1].Time.Before(b.Time) {
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// TrimToWindow keeps the last `days` bars.
func TrimToWindow(bars []model.OHLCV, days int) []model.OHLCV {
	if days > 0 && len(bars) > days {
		return bars[len(bars)-days:]
	}
	return bars
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
