package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PhiTrade/internal/domain/models"
)

func series(prices ...float64) []models.PricePoint {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return out
}

func trending(n int, start, step float64) []models.PricePoint {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return series(prices...)
}

func TestComputeLogReturns(t *testing.T) {
	rets := ComputeLogReturns(series(100, 110, 99))
	require.Len(t, rets, 2)
	assert.InDelta(t, math.Log(1.1), rets[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), rets[1], 1e-12)

	assert.Nil(t, ComputeLogReturns(series(100)))
}

func TestRSIExtremes(t *testing.T) {
	up := RSI(trending(30, 100, 1), RSIPeriod)
	assert.Equal(t, 100.0, up)

	down := RSI(trending(30, 100, -1), RSIPeriod)
	assert.Less(t, down, 1.0)

	assert.Equal(t, 50.0, RSI(series(100, 101), RSIPeriod))
}

func TestMACDSign(t *testing.T) {
	flatThenUp := make([]float64, 60)
	for i := range flatThenUp {
		flatThenUp[i] = 100
		if i >= 50 {
			flatThenUp[i] = 100 + float64(i-49)*2
		}
	}
	assert.Greater(t, MACD(series(flatThenUp...)), 0.0)

	assert.Zero(t, MACD(series(100, 101, 102)))
}

func TestBollingerBands(t *testing.T) {
	flat := Bollinger(trending(25, 100, 0), BollingerPeriod, BollingerWidth)
	assert.Equal(t, 100.0, flat.Middle)
	assert.Equal(t, flat.Upper, flat.Lower)

	noisy := Bollinger(series(100, 105, 95, 110, 90, 100, 105, 95, 110, 90,
		100, 105, 95, 110, 90, 100, 105, 95, 110, 90), BollingerPeriod, BollingerWidth)
	assert.Greater(t, noisy.Upper, noisy.Middle)
	assert.Less(t, noisy.Lower, noisy.Middle)
}

func TestRealizedVolatility(t *testing.T) {
	rets := []float64{0.01, -0.02, 0.015, -0.005, 0.01, -0.01, 0.02, -0.015, 0.005, 0.01}
	vol := RealizedVolatility(rets, 10, 252)
	assert.Greater(t, vol, 0.0)

	assert.Zero(t, RealizedVolatility(rets, 20, 252))
}

func TestBuildMarketState(t *testing.T) {
	prices := trending(40, 100, 0.5)
	state, err := BuildMarketState("AAPL", prices, 5000, "1m")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", state.Symbol)
	assert.Equal(t, prices[len(prices)-1].Price, state.Price)
	assert.Equal(t, 5000.0, state.Volume)
	assert.Greater(t, state.RSI, 50.0)
	assert.Greater(t, state.Bollinger.Upper, state.Bollinger.Lower)
	assert.Equal(t, prices[len(prices)-1].Timestamp, state.Timestamp)

	_, err = BuildMarketState("AAPL", prices[:1], 0, "1m")
	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}
