package encoding

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PhiTrade/internal/domain/models"
)

func TestScalePriceLattice(t *testing.T) {
	e := NewEncoder()

	sv, err := e.Scale("price", 125.50, models.UnitPrice)
	require.NoError(t, err)
	assert.Equal(t, uint64(12550), sv.Scaled)
	assert.Equal(t, float64(100), sv.Factor)

	back := float64(sv.Scaled) / sv.Factor
	assert.InDelta(t, 125.50, back, 0.01/2)
}

func TestScaleRejectsNonPositive(t *testing.T) {
	e := NewEncoder()

	for _, raw := range []float64{0, -1, -125.50} {
		_, err := e.Scale("price", raw, models.UnitPrice)
		var invalid *models.InvalidValueError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, raw, invalid.Value)
	}
}

func TestDecomposeKnownValues(t *testing.T) {
	e := NewEncoder()

	cases := []struct {
		n      uint64
		values []uint64
	}{
		{1, []uint64{1}},
		{2, []uint64{2}},
		{4, []uint64{1, 3}},
		{10, []uint64{2, 8}},
		{100, []uint64{3, 8, 89}},
		{12550, []uint64{2, 5, 1597, 10946}},
	}
	for _, c := range cases {
		d, err := e.Decompose(c.n)
		require.NoError(t, err)
		assert.Equal(t, c.values, d.Values, "n=%d", c.n)
		assert.Equal(t, c.n, d.Sum(), "n=%d", c.n)
	}
}

func TestDecomposeZero(t *testing.T) {
	e := NewEncoder()

	_, err := e.Decompose(0)
	var invalid *models.InvalidValueError
	require.ErrorAs(t, err, &invalid)
}

// Every positive integer has exactly one representation as a sum of
// non-consecutive Fibonacci numbers; the greedy decomposition must sum back
// to the input and never select adjacent indices.
func TestDecomposeProperty(t *testing.T) {
	e := NewEncoder()

	prop := func(n uint64) bool {
		n = n%1_000_000_000_000 + 1
		d, err := e.Decompose(n)
		if err != nil {
			return false
		}
		if d.Sum() != n {
			return false
		}
		for k := 1; k < len(d.Indices); k++ {
			if d.Indices[k] <= d.Indices[k-1]+1 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(prop, &quick.Config{MaxCount: 2000}))
}

func TestPhaseCoordinateUnitPoint(t *testing.T) {
	e := NewEncoder()

	d, err := e.Decompose(1)
	require.NoError(t, err)
	pc := e.PhaseCoordinate(d)

	assert.Equal(t, 0.0, pc.Phi)
	assert.Equal(t, -1.0, pc.Psi)
	assert.InDelta(t, -math.Pi/2, pc.Theta, 1e-12)
	assert.InDelta(t, 1.0, pc.Magnitude, 1e-12)
}

func TestPhaseCoordinateParitySplit(t *testing.T) {
	e := NewEncoder()

	// 10 = 2 (index 2, even) + 8 (index 5, odd)
	d, err := e.Decompose(10)
	require.NoError(t, err)
	pc := e.PhaseCoordinate(d)

	assert.Equal(t, 2.0, pc.Phi)
	assert.Equal(t, -8.0, pc.Psi)
	assert.False(t, e.NearEquilibrium(pc.Phi, pc.Psi, 1.0))
}

func TestNearestLucas(t *testing.T) {
	e := NewEncoder()

	value, index, distance := e.NearestLucas(11)
	assert.Equal(t, uint64(11), value)
	assert.Equal(t, 5, index)
	assert.Equal(t, uint64(0), distance)

	value, _, distance = e.NearestLucas(13)
	assert.Equal(t, uint64(11), value)
	assert.Equal(t, uint64(2), distance)
}

func TestSupportResistance(t *testing.T) {
	e := NewEncoder()

	support, resistance := e.SupportResistance(100, 3)
	assert.Equal(t, []uint64{55, 34, 21}, support)
	assert.Equal(t, []uint64{144, 233, 377}, resistance)
}

func TestSequenceAnchors(t *testing.T) {
	e := NewEncoder()

	assert.Equal(t, uint64(89), e.Fibonacci(10))
	assert.Equal(t, uint64(2), e.Lucas(0))
	assert.Equal(t, uint64(1), e.Lucas(1))
	assert.Equal(t, uint64(123), e.Lucas(10))
	assert.GreaterOrEqual(t, e.LucasLen(), 50)
}
