package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PhiTrade/internal/domain/models"
	"PhiTrade/internal/services/decision"
	"PhiTrade/internal/services/encoding"
	"PhiTrade/internal/services/risk"
	"PhiTrade/pkg/logger"
)

type stubPriceStore struct {
	prices []models.PricePoint
	err    error
}

func (s *stubPriceStore) History(context.Context, string, int) ([]models.PricePoint, error) {
	return s.prices, s.err
}

type stubTrajectory struct {
	sn   float64
	iter int64
	err  error
}

func (s *stubTrajectory) Next(context.Context, string, models.MarketState) (models.StabilityTrajectoryPoint, error) {
	if s.err != nil {
		return models.StabilityTrajectoryPoint{}, s.err
	}
	s.iter++
	return models.StabilityTrajectoryPoint{
		Iteration: s.iter,
		Sn:        s.sn,
		LyapunovV: s.sn * s.sn,
		Timestamp: time.Now(),
	}, nil
}

type stubScorer struct {
	scores map[models.Action]float64
	err    error
}

func (s *stubScorer) Score(context.Context, string, map[string]float64) (map[models.Action]float64, error) {
	return s.scores, s.err
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)      {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLastPrice(string, float64)       {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) RecordDecision(string)                 {}
func (nopMetrics) RecordEquilibrium(string, bool)        {}
func (nopMetrics) RecordVaR(string, string, float64)     {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// noisyPrices produces a deterministic oscillating series with a positive
// left tail so every VaR method has something to measure.
func noisyPrices(n int) []models.PricePoint {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PricePoint, n)
	price := 100.0
	for i := 0; i < n; i++ {
		out[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: price}
		price *= 1 + 0.01*math.Sin(float64(i)*1.7)
	}
	return out
}

func newTestPipeline(t *testing.T, prices *stubPriceStore, traj *stubTrajectory, scorer *stubScorer) *DecisionPipeline {
	t.Helper()
	log := testLogger(t)
	enc := encoding.NewEncoder()
	engine := decision.NewEngine(enc, scorer, decision.Config{}, log)
	deps := PipelineDeps{
		Encoder:    enc,
		Estimator:  risk.NewEstimator(enc, risk.Config{Simulations: 500}, log),
		Engine:     engine,
		Trajectory: traj,
		Prices:     prices,
		Metrics:    nopMetrics{},
		Logger:     log,
	}
	return NewDecisionPipeline(deps, PipelineConfig{})
}

func TestEvaluateNoSignalOffEquilibrium(t *testing.T) {
	// S_n far above threshold: confidence tops out at 0.7, below the gate
	pipe := newTestPipeline(t,
		&stubPriceStore{prices: noisyPrices(120)},
		&stubTrajectory{sn: 0.5},
		&stubScorer{scores: map[models.Action]float64{models.ActionBuy: 0.9}},
	)

	d, err := pipe.Evaluate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestEvaluatePropagatesTrajectoryError(t *testing.T) {
	cause := &models.ScorerUnavailableError{Scorer: "trajectory", Err: context.DeadlineExceeded}
	pipe := newTestPipeline(t,
		&stubPriceStore{prices: noisyPrices(120)},
		&stubTrajectory{err: cause},
		&stubScorer{},
	)

	_, err := pipe.Evaluate(context.Background(), "AAPL")
	var unavailable *models.ScorerUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	pipe := newTestPipeline(t,
		&stubPriceStore{prices: noisyPrices(1)},
		&stubTrajectory{sn: 1e-7},
		&stubScorer{},
	)

	_, err := pipe.Evaluate(context.Background(), "AAPL")
	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestVaRAndEncodeOperations(t *testing.T) {
	pipe := newTestPipeline(t,
		&stubPriceStore{prices: noisyPrices(120)},
		&stubTrajectory{sn: 1e-7},
		&stubScorer{},
	)

	cmp, err := pipe.VaR(context.Background(), "AAPL", 0, 0)
	require.NoError(t, err)
	assert.Len(t, cmp.Results, 3)

	wide, err := pipe.VaR(context.Background(), "AAPL", 0.99, 5)
	require.NoError(t, err)
	assert.Greater(t, wide.Max, cmp.Max)

	sv, dec, pc, err := pipe.Encode("price", 125.50, models.UnitPrice)
	require.NoError(t, err)
	assert.Equal(t, uint64(12550), sv.Scaled)
	assert.Equal(t, uint64(12550), dec.Sum())
	assert.NotZero(t, pc.Magnitude)

	_, _, _, err = pipe.Encode("price", -1, models.UnitPrice)
	var invalid *models.InvalidValueError
	require.ErrorAs(t, err, &invalid)
}

func TestDetectorsArePerSymbol(t *testing.T) {
	pipe := newTestPipeline(t,
		&stubPriceStore{prices: noisyPrices(120)},
		&stubTrajectory{sn: 1e-7},
		&stubScorer{scores: map[models.Action]float64{models.ActionHold: 1}},
	)

	a := pipe.detector("AAPL")
	b := pipe.detector("MSFT")
	assert.NotSame(t, a, b)
	assert.Same(t, a, pipe.detector("AAPL"))
}
