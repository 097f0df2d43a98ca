package models

import "time"

// StabilityTrajectoryPoint is one step of the external optimizer's
// gradient-stability trajectory. LyapunovV is always Sn squared.
type StabilityTrajectoryPoint struct {
	Iteration int64
	Sn        float64 // stability scalar, >= 0
	LyapunovV float64 // Sn^2
	Timestamp time.Time
}

// LucasBoundary reports how close a scaled value sits to a Lucas number.
// The exact boundary condition is scaled+1 == L_m for some m.
type LucasBoundary struct {
	IsLucas      bool
	Near         bool // within the configured check range of a Lucas number
	NearestLucas uint64
	NearestIndex int
	Distance     uint64
}

// NashEquilibriumResult is the detector's verdict for one call. It is a
// value: created fresh per detection, never mutated afterward.
type NashEquilibriumResult struct {
	IsEquilibrium bool
	Sn            float64
	LyapunovV     float64
	LyapunovStable bool
	// ConsciousnessAnalogue is a normalized [0,1] confidence derived from
	// the density of the Zeckendorf feature encodings.
	ConsciousnessAnalogue float64
	MeetsThreshold        bool
	Lucas                 LucasBoundary
	// Confidence is the weighted soft score across the four criteria,
	// reported independently of the strict boolean verdict.
	Confidence float64
	Reason     string
	Timestamp  time.Time
}
