package models

import "time"

// Tick is a single trade print from the upstream feed.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// PricePoint is one observation of an ordered price series.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// BollingerBands holds the 20-period band levels around the price.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// MarketState is an immutable per-tick snapshot consumed by the detector.
// It is assembled by the data layer from stored ticks; the core never
// mutates one after construction.
type MarketState struct {
	Symbol     string
	Price      float64
	Volume     float64
	Volatility float64 // annualized realized volatility
	RSI        float64
	MACD       float64
	Bollinger  BollingerBands
	Timestamp  time.Time
}
