package models

import "time"

// VaRMethod identifies one of the three independent estimators.
type VaRMethod string

const (
	VaRHistorical VaRMethod = "historical"
	VaRParametric VaRMethod = "parametric"
	VaRMonteCarlo VaRMethod = "monte_carlo"
)

// SampleStats are the return-series moments behind an estimate.
type SampleStats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// VaRResult is one method's estimate. VaR and ExpectedShortfall are loss
// magnitudes (positive numbers) at the given confidence and horizon.
type VaRResult struct {
	Symbol               string
	Method               VaRMethod
	VaR                  float64
	ConfidenceLevel      float64
	TimeHorizonDays      int
	ExpectedShortfall    float64
	AnnualizedVolatility float64
	Stats                SampleStats
	Timestamp            time.Time
}

// VaRComparison reconciles the available method estimates without mutating
// them. Recommended carries the value the recommendation rule selects.
type VaRComparison struct {
	Symbol         string
	Results        []VaRResult
	Mean           float64
	StdDev         float64
	Min            float64
	Max            float64
	Recommended    float64
	Recommendation string
	Timestamp      time.Time
}

// WeightedSeries pairs one asset's price series with its portfolio weight.
type WeightedSeries struct {
	Symbol string
	Weight float64
	Prices []PricePoint
}
