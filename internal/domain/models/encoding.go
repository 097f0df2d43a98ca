package models

// Unit selects the scale factor applied before integer encoding.
type Unit string

const (
	UnitPrice   Unit = "price"   // cents, x100
	UnitRate    Unit = "rate"    // basis points, x10000
	UnitVolume  Unit = "volume"  // whole units, x1
	UnitPercent Unit = "percent" // hundredths, x100
)

// ScaleFactor returns the multiplier for a unit. Unknown units scale x1.
func (u Unit) ScaleFactor() float64 {
	switch u {
	case UnitPrice, UnitPercent:
		return 100
	case UnitRate:
		return 10000
	default:
		return 1
	}
}

// ScaledValue is a raw scalar promoted to the positive integer lattice.
// Invariant: Scaled == round(|Raw| * Factor) and Scaled > 0.
type ScaledValue struct {
	SourceID string
	Raw      float64
	Scaled   uint64
	Factor   float64
	Unit     Unit
}

// ZeckendorfDecomposition is the unique representation of a positive integer
// as a sum of non-consecutive Fibonacci numbers. Indices use the
// distinct-value ladder F(1)=1, F(2)=2, F(3)=3, F(4)=5, ... ascending.
type ZeckendorfDecomposition struct {
	Indices []int
	Values  []uint64
}

// Sum returns the decomposed integer.
func (d ZeckendorfDecomposition) Sum() uint64 {
	var s uint64
	for _, v := range d.Values {
		s += v
	}
	return s
}

// PhaseCoordinate is the 2D embedding of a decomposition: Phi sums values at
// even indices, Psi is the negated sum at odd indices. Derived, immutable.
type PhaseCoordinate struct {
	Phi       float64
	Psi       float64
	Theta     float64 // atan2(Psi, Phi)
	Magnitude float64
}
