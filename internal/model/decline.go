package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// DeclineRecord is the maximum drawdown of one stock over the lookback window.
type DeclineRecord struct {
	Stock           Stock     `json:"stock"`
	DrawdownPct     float64   `json:"drawdown_pct"`
	PeakDate        time.Time `json:"peak_date"`
	TroughDate      time.Time `json:"trough_date"`
	PeakPrice       float64   `json:"peak_price"`
	TroughPrice     float64   `json:"trough_price"`
	PeriodReturnPct float64   `json:"period_return_pct"`
	CurrentPrice    float64   `json:"current_price"`
	WindowHigh      float64   `json:"window_high"`
	WindowLow       float64   `json:"window_low"`
	RangePosition   float64   `json:"range_position"` // current price within [WindowLow, WindowHigh], 0~1
}

// StatValue is an aggregate that may be undefined (no data), as opposed to zero.
type StatValue struct {
	Value   float64
	Defined bool
}

// Defined wraps v as a defined StatValue.
func Defined(v float64) StatValue { return StatValue{Value: v, Defined: true} }

// Undefined returns the "no data" marker.
func Undefined() StatValue { return StatValue{} }

func (s StatValue) String() string {
	if !s.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(s.Value, 'f', 2, 64)
}

func (s StatValue) MarshalJSON() ([]byte, error) {
	if !s.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *StatValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StatValue{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Defined(v)
	return nil
}

// MarketStats aggregates a set of DeclineRecords.
type MarketStats struct {
	Count     int            `json:"count"`
	Mean      StatValue      `json:"mean"`
	Median    StatValue      `json:"median"`
	StdDev    StatValue      `json:"std_dev"`
	Min       StatValue      `json:"min"`
	Max       StatValue      `json:"max"`
	Histogram map[string]int `json:"histogram"`
	Labels    []string       `json:"labels"` // bucket order
}

// ExclusionReason says why a stock produced no DeclineRecord.
type ExclusionReason string

const (
	ExcludedFetchFailed      ExclusionReason = "fetch_failed"
	ExcludedInsufficientData ExclusionReason = "insufficient_data"
)

// Exclusion records a stock skipped during a run.
type Exclusion struct {
	Stock   Stock           `json:"stock"`
	Reason  ExclusionReason `json:"reason"`
	Message string          `json:"message,omitempty"`
}
