package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Market identifies a KRX board.
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
)

// Stock is a single listed issue.
type Stock struct {
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Market Market `json:"market" yaml:"market"`
}

// PriceSeries holds the daily bars of one stock over the lookback window.
// Bars are ordered by strictly increasing date.
type PriceSeries struct {
	Stock     Stock
	Bars      []OHLCV
	FetchedAt time.Time
}
