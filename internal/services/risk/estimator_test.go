package risk

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PhiTrade/internal/domain/models"
	"PhiTrade/internal/services/encoding"
	"PhiTrade/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testEstimator(t *testing.T, cfg Config) *Estimator {
	t.Helper()
	return NewEstimator(encoding.NewEncoder(), cfg, testLogger(t))
}

// syntheticPrices builds a reproducible random-walk price series.
func syntheticPrices(n int, seed int64) []models.PricePoint {
	rng := rand.New(rand.NewSource(seed))
	out := make([]models.PricePoint, n)
	price := 100.0
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * 24 * time.Hour), Price: price}
		price *= math.Exp(rng.NormFloat64() * 0.02)
	}
	return out
}

func flatPrices(n int) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := range out {
		out[i] = models.PricePoint{Price: 100.0}
	}
	return out
}

func TestNormalQuantileAccuracy(t *testing.T) {
	cases := map[float64]float64{
		0.90: 1.2816,
		0.95: 1.6449,
		0.99: 2.3263,
	}
	for p, want := range cases {
		assert.InDelta(t, want, normalQuantile(p), 1e-4, "p=%v", p)
		assert.InDelta(t, -want, normalQuantile(1-p), 1e-4, "p=%v", 1-p)
	}
}

func TestHistoricalZeroReturns(t *testing.T) {
	e := testEstimator(t, Config{})

	res, err := e.Historical("FLAT", flatPrices(50))
	require.NoError(t, err)
	assert.Zero(t, res.VaR)
	assert.Zero(t, res.ExpectedShortfall)
	assert.Zero(t, res.AnnualizedVolatility)
}

func TestExpectedShortfallDominatesVaR(t *testing.T) {
	e := testEstimator(t, Config{Simulations: 2000})
	prices := syntheticPrices(300, 7)

	for _, run := range map[models.VaRMethod]func(string, []models.PricePoint) (models.VaRResult, error){
		models.VaRHistorical: e.Historical,
		models.VaRParametric: e.Parametric,
		models.VaRMonteCarlo: e.MonteCarlo,
	} {
		res, err := run("TEST", prices)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.ExpectedShortfall, res.VaR, "method %s", res.Method)
		assert.Greater(t, res.VaR, 0.0, "method %s", res.Method)
	}
}

func TestInsufficientData(t *testing.T) {
	e := testEstimator(t, Config{})

	_, err := e.Historical("X", flatPrices(1))
	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)

	_, err = e.Estimate("X", flatPrices(1))
	require.ErrorAs(t, err, &insufficient)
}

func TestMonteCarloDeterministic(t *testing.T) {
	prices := syntheticPrices(100, 11)

	a, err := testEstimator(t, Config{Seed: 99, Simulations: 500}).MonteCarlo("X", prices)
	require.NoError(t, err)
	b, err := testEstimator(t, Config{Seed: 99, Simulations: 500}).MonteCarlo("X", prices)
	require.NoError(t, err)

	assert.Equal(t, a.VaR, b.VaR)
	assert.Equal(t, a.ExpectedShortfall, b.ExpectedShortfall)
}

func TestMonteCarloFibonacciVolatility(t *testing.T) {
	prices := syntheticPrices(60, 3)

	res, err := testEstimator(t, Config{ZeckendorfVolatility: true, Simulations: 500}).MonteCarlo("X", prices)
	require.NoError(t, err)
	assert.Greater(t, res.VaR, 0.0)
}

func mockResults(vars ...float64) []models.VaRResult {
	out := make([]models.VaRResult, len(vars))
	methods := []models.VaRMethod{models.VaRHistorical, models.VaRParametric, models.VaRMonteCarlo}
	for i, v := range vars {
		out[i] = models.VaRResult{Method: methods[i%len(methods)], VaR: v}
	}
	return out
}

func TestReconcileAgreementTiers(t *testing.T) {
	e := testEstimator(t, Config{})

	high := e.Reconcile("X", mockResults(1.00, 1.01, 1.02))
	assert.Contains(t, high.Recommendation, "high confidence")
	assert.InDelta(t, 1.01, high.Recommended, 1e-9)

	moderate := e.Reconcile("X", mockResults(1.00, 1.10, 1.25))
	assert.Contains(t, moderate.Recommendation, "moderate agreement")
	assert.InDelta(t, moderate.Mean, moderate.Recommended, 1e-9)

	divergent := e.Reconcile("X", mockResults(1.0, 1.5, 2.0))
	assert.Contains(t, divergent.Recommendation, "conservative")
	assert.Equal(t, 2.0, divergent.Recommended)
}

func TestEstimateDegradesGracefully(t *testing.T) {
	e := testEstimator(t, Config{Simulations: 500})

	cmp, err := e.Estimate("X", syntheticPrices(120, 5))
	require.NoError(t, err)
	assert.Len(t, cmp.Results, 3)
	assert.Greater(t, cmp.Recommended, 0.0)
}

func TestPortfolioVaR(t *testing.T) {
	e := testEstimator(t, Config{})

	assets := []models.WeightedSeries{
		{Symbol: "AAA", Weight: 0.6, Prices: syntheticPrices(100, 21)},
		{Symbol: "BBB", Weight: 0.4, Prices: syntheticPrices(100, 22)},
	}
	res, err := e.Portfolio("book", assets)
	require.NoError(t, err)
	assert.Equal(t, models.VaRParametric, res.Method)
	assert.Greater(t, res.VaR, 0.0)

	_, err = e.Portfolio("empty", nil)
	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}
