package calculator

import (
	"errors"
	"math"

	"DeclineWatch/internal/model"
)

// WindowRange returns the highest high and lowest low over the bars. Bars with
// a non-positive high or low are ignored.
func WindowRange(bars []model.OHLCV) (high, low float64, err error) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > 0 && b.High > high {
			high = b.High
		}
		if b.Low > 0 && b.Low < low {
			low = b.Low
		}
	}
	if math.IsInf(high, 0) || math.IsInf(low, 0) {
		return 0, 0, errors.New("no usable bars")
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
