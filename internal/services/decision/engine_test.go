package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PhiTrade/internal/domain/models"
	"PhiTrade/internal/services/encoding"
	"PhiTrade/pkg/logger"
)

type stubScorer struct {
	scores map[models.Action]float64
	err    error
}

func (s *stubScorer) Score(context.Context, string, map[string]float64) (map[models.Action]float64, error) {
	return s.scores, s.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testEngine(t *testing.T, scorer *stubScorer, cfg Config) *Engine {
	t.Helper()
	return NewEngine(encoding.NewEncoder(), scorer, cfg, testLogger(t))
}

func testState() models.MarketState {
	return models.MarketState{
		Symbol:     "AAPL",
		Price:      125.50,
		Volume:     1_000_000,
		Volatility: 0.25,
		RSI:        55,
		MACD:       0.8,
		Bollinger:  models.BollingerBands{Upper: 130, Middle: 125, Lower: 120},
		Timestamp:  time.Now(),
	}
}

func equilibrium(confidence float64, strict bool) models.NashEquilibriumResult {
	return models.NashEquilibriumResult{
		IsEquilibrium:         strict,
		Sn:                    1e-7,
		Confidence:            confidence,
		ConsciousnessAnalogue: 0.78,
		MeetsThreshold:        true,
		Reason:                "test",
	}
}

func testEncoding(t *testing.T) models.ZeckendorfDecomposition {
	t.Helper()
	d, err := encoding.NewEncoder().Decompose(12550)
	require.NoError(t, err)
	return d
}

func TestDecideGatedBelowMinConfidence(t *testing.T) {
	scorer := &stubScorer{scores: map[models.Action]float64{models.ActionBuy: 0.9}}
	eng := testEngine(t, scorer, Config{})

	d, err := eng.Decide(context.Background(), testState(), testEncoding(t), equilibrium(0.5, true), models.VaRComparison{})

	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Zero(t, eng.Stats().TotalDecisions)
}

func TestDecideGatedBelowDensityThreshold(t *testing.T) {
	scorer := &stubScorer{scores: map[models.Action]float64{models.ActionBuy: 0.9}}
	eng := testEngine(t, scorer, Config{})

	eq := equilibrium(0.8, true)
	eq.MeetsThreshold = false
	d, err := eng.Decide(context.Background(), testState(), testEncoding(t), eq, models.VaRComparison{})

	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDecideForcesHoldOffEquilibrium(t *testing.T) {
	scorer := &stubScorer{scores: map[models.Action]float64{models.ActionBuy: 0.95, models.ActionHold: 0.1}}
	eng := testEngine(t, scorer, Config{})

	d, err := eng.Decide(context.Background(), testState(), testEncoding(t), equilibrium(0.8, false), models.VaRComparison{})

	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Zero(t, d.Quantity)
}

func TestDecideCarriesReasoningTrace(t *testing.T) {
	scorer := &stubScorer{scores: map[models.Action]float64{
		models.ActionBuy: 0.9, models.ActionSell: 0.2, models.ActionHold: 0.1, models.ActionBuyCall: 0.5,
	}}
	eng := testEngine(t, scorer, Config{EnableOptions: true})

	risk := models.VaRComparison{Recommended: 0.031, Recommendation: "high confidence: methods agree, use average"}
	d, err := eng.Decide(context.Background(), testState(), testEncoding(t), equilibrium(0.9, true), risk)

	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.Greater(t, d.Quantity, int64(0))
	require.GreaterOrEqual(t, len(d.ReasoningTrace), 7)
	assert.Contains(t, d.ReasoningTrace[0], "AAPL")
	assert.Contains(t, d.ReasoningTrace[1], "verdict=true")
	joined := ""
	for _, line := range d.ReasoningTrace {
		joined += line + "\n"
	}
	assert.Contains(t, joined, "score #1: BUY")
	assert.Contains(t, joined, "zeckendorf: 12550")
	assert.Contains(t, joined, "final: BUY")
}

func TestDecidePropagatesScorerError(t *testing.T) {
	cause := errors.New("connection refused")
	scorer := &stubScorer{err: &models.ScorerUnavailableError{Scorer: "remote", Err: cause}}
	eng := testEngine(t, scorer, Config{})

	_, err := eng.Decide(context.Background(), testState(), testEncoding(t), equilibrium(0.9, true), models.VaRComparison{})

	var unavailable *models.ScorerUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, cause)
}

func TestSelectActionExcludesOptionsWhenDisabled(t *testing.T) {
	scorer := &stubScorer{}
	eng := testEngine(t, scorer, Config{EnableOptions: false})

	scores := map[models.Action]float64{
		models.ActionIronCondor: 0.99,
		models.ActionBuy:        0.4,
	}
	assert.Equal(t, models.ActionBuy, eng.SelectAction(scores, equilibrium(0.9, true)))

	eng = testEngine(t, scorer, Config{EnableOptions: true})
	assert.Equal(t, models.ActionIronCondor, eng.SelectAction(scores, equilibrium(0.9, true)))
}

func TestSizePositionBounds(t *testing.T) {
	eng := testEngine(t, &stubScorer{}, Config{MaxPositionSizePct: 0.1})
	state := testState()

	qty := eng.SizePosition(models.ActionBuy, state, equilibrium(0.9, true), 100000)
	// 100000 * 0.1 / 1.25 * 1.78 = 14240 notional, / 125.50 = 113 shares
	assert.Equal(t, int64(113), qty)

	assert.Zero(t, eng.SizePosition(models.ActionHold, state, equilibrium(0.9, true), 100000))
	assert.Zero(t, eng.SizePosition(models.ActionBuy, state, equilibrium(0.9, true), 0))

	spread := eng.SizePosition(models.ActionBullCallSpread, state, equilibrium(0.9, true), 100000)
	assert.Less(t, spread, qty)
	assert.Greater(t, spread, int64(0))
}

func TestExecuteLedgerRoundTrip(t *testing.T) {
	eng := testEngine(t, &stubScorer{}, Config{StartingCash: 10000})

	buy := &models.TradingDecision{Action: models.ActionBuy, Symbol: "AAPL", Quantity: 10, Price: 100}
	require.True(t, eng.Execute(buy))
	assert.InDelta(t, 9000, eng.Ledger().Cash(), 1e-9)

	second := &models.TradingDecision{Action: models.ActionBuy, Symbol: "AAPL", Quantity: 10, Price: 200}
	require.True(t, eng.Execute(second))
	positions := eng.Ledger().Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, int64(20), positions[0].Quantity)
	assert.InDelta(t, 150, positions[0].AvgCost, 1e-9)

	tooBig := &models.TradingDecision{Action: models.ActionBuy, Symbol: "AAPL", Quantity: 1000, Price: 100}
	assert.False(t, eng.Execute(tooBig))

	oversell := &models.TradingDecision{Action: models.ActionSell, Symbol: "AAPL", Quantity: 30, Price: 100}
	assert.False(t, eng.Execute(oversell))

	sellAll := &models.TradingDecision{Action: models.ActionSell, Symbol: "AAPL", Quantity: 20, Price: 150}
	require.True(t, eng.Execute(sellAll))
	assert.Empty(t, eng.Ledger().Positions())
	assert.InDelta(t, 10000, eng.Ledger().Cash(), 1e-9)
}

func TestHistoryCapFIFO(t *testing.T) {
	scorer := &stubScorer{scores: map[models.Action]float64{models.ActionHold: 1}}
	eng := testEngine(t, scorer, Config{HistoryCap: 5})

	for i := 0; i < 12; i++ {
		_, err := eng.Decide(context.Background(), testState(), testEncoding(t), equilibrium(0.9, true), models.VaRComparison{})
		require.NoError(t, err)
	}

	assert.Len(t, eng.History(), 5)
	stats := eng.Stats()
	assert.Equal(t, 5, stats.TotalDecisions)
	assert.Equal(t, 5, stats.NashDecisions)
	assert.Equal(t, 1.0, stats.EquilibriumRate)
	assert.InDelta(t, 0.9, stats.AvgConfidence, 1e-9)
}
