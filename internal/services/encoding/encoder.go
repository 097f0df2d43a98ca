package encoding

import (
	"math"

	"PhiTrade/internal/domain/models"
)

// Phi is the golden ratio; PhiInverse is 1/φ = φ-1.
const (
	Phi        = 1.618033988749895
	PhiInverse = 0.6180339887498949
)

// maxIndex bounds the precomputed sequence tables. Generation stops early
// when the next term would overflow uint64 (Fibonacci near index 91).
const maxIndex = 100

// Encoder converts scalar observations into the integer lattice and derives
// phase coordinates from their Zeckendorf decompositions. The Fibonacci and
// Lucas tables are populated once at construction and read-only afterwards,
// so concurrent use needs no locking.
type Encoder struct {
	fib   []uint64 // fib[i] = F(i+1) classic: 1, 1, 2, 3, 5, ... (index 0 unused by decompositions)
	lucas []uint64 // lucas[i] = L(i): 2, 1, 3, 4, 7, ...
}

// NewEncoder precomputes the sequence tables and verifies known anchor
// terms. A mismatch means memory corruption, not bad input, hence the panic.
func NewEncoder() *Encoder {
	e := &Encoder{
		fib:   generate(1, 1, maxIndex),
		lucas: generate(2, 1, maxIndex),
	}
	if e.fib[10] != 89 || e.lucas[10] != 123 || e.lucas[0] != 2 {
		panic("encoding: sequence table self-check failed")
	}
	return e
}

// generate builds a, b, a+b, ... until n terms exist or uint64 would overflow.
func generate(a, b uint64, n int) []uint64 {
	out := make([]uint64, 0, n)
	out = append(out, a, b)
	for len(out) < n {
		prev, cur := out[len(out)-2], out[len(out)-1]
		if cur > math.MaxUint64-prev {
			break
		}
		out = append(out, prev+cur)
	}
	return out
}

// Scale promotes a raw scalar to the positive integer lattice using the
// unit's factor. Zero and negative results are a defined error, never an
// encoding.
func (e *Encoder) Scale(sourceID string, raw float64, unit models.Unit) (models.ScaledValue, error) {
	factor := unit.ScaleFactor()
	scaled := math.Round(math.Abs(raw) * factor)
	if raw <= 0 || scaled <= 0 {
		return models.ScaledValue{}, &models.InvalidValueError{Source: sourceID, Value: raw}
	}
	return models.ScaledValue{
		SourceID: sourceID,
		Raw:      raw,
		Scaled:   uint64(scaled),
		Factor:   factor,
		Unit:     unit,
	}, nil
}

// Decompose runs the greedy Zeckendorf algorithm: repeatedly take the
// largest Fibonacci number not exceeding the remainder. Greedy selection is
// provably unique and never picks consecutive indices. Indices come out
// ascending; index i holds fib value F(i+1) so every index maps to a
// distinct value and the minimum index is 1.
func (e *Encoder) Decompose(n uint64) (models.ZeckendorfDecomposition, error) {
	if n == 0 {
		return models.ZeckendorfDecomposition{}, &models.InvalidValueError{Source: "decompose", Value: 0}
	}
	var rev []int
	remaining := n
	for i := len(e.fib) - 1; i >= 1 && remaining > 0; i-- {
		if e.fib[i] <= remaining {
			rev = append(rev, i)
			remaining -= e.fib[i]
		}
	}
	indices := make([]int, 0, len(rev))
	values := make([]uint64, 0, len(rev))
	for k := len(rev) - 1; k >= 0; k-- {
		indices = append(indices, rev[k])
		values = append(values, e.fib[rev[k]])
	}
	return models.ZeckendorfDecomposition{Indices: indices, Values: values}, nil
}

// PhaseCoordinate partitions a decomposition by index parity: even indices
// sum into phi, odd indices negate into psi, then the polar form follows.
func (e *Encoder) PhaseCoordinate(d models.ZeckendorfDecomposition) models.PhaseCoordinate {
	var phi, psi float64
	for k, idx := range d.Indices {
		v := float64(d.Values[k])
		if idx%2 == 0 {
			phi += v
		} else {
			psi -= v
		}
	}
	return models.PhaseCoordinate{
		Phi:       phi,
		Psi:       psi,
		Theta:     math.Atan2(psi, phi),
		Magnitude: math.Sqrt(phi*phi + psi*psi),
	}
}

// NearEquilibrium is the encoding-level equilibrium signal: the even and odd
// partitions cancel to within tolerance.
func (e *Encoder) NearEquilibrium(phi, psi, tolerance float64) bool {
	return math.Abs(phi+psi) < tolerance
}

// Fibonacci returns the table value at index i, or 0 when out of range.
func (e *Encoder) Fibonacci(i int) uint64 {
	if i < 0 || i >= len(e.fib) {
		return 0
	}
	return e.fib[i]
}

// Lucas returns L(i), or 0 when out of range.
func (e *Encoder) Lucas(i int) uint64 {
	if i < 0 || i >= len(e.lucas) {
		return 0
	}
	return e.lucas[i]
}

// LucasLen returns the number of cached Lucas terms.
func (e *Encoder) LucasLen() int { return len(e.lucas) }

// NearestLucas scans L(0)..L(49) for the term closest to v and reports it
// with its index and absolute distance.
func (e *Encoder) NearestLucas(v uint64) (value uint64, index int, distance uint64) {
	limit := 50
	if limit > len(e.lucas) {
		limit = len(e.lucas)
	}
	best := uint64(math.MaxUint64)
	for i := 0; i < limit; i++ {
		l := e.lucas[i]
		var d uint64
		if l > v {
			d = l - v
		} else {
			d = v - l
		}
		if d < best {
			best = d
			value = l
			index = i
		}
	}
	return value, index, best
}

// SupportResistance returns up to `levels` Fibonacci values directly below
// and above price on the cached ladder. Carried in decision reasoning
// traces for auditability.
func (e *Encoder) SupportResistance(price uint64, levels int) (support, resistance []uint64) {
	idx := 1
	for i := 1; i < len(e.fib); i++ {
		if e.fib[i] <= price {
			idx = i
		} else {
			break
		}
	}
	for i := 1; i <= levels && idx-i >= 1; i++ {
		support = append(support, e.fib[idx-i])
	}
	for i := 1; i <= levels && idx+i < len(e.fib); i++ {
		resistance = append(resistance, e.fib[idx+i])
	}
	return support, resistance
}
