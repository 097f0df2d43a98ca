package decision

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"PhiTrade/internal/domain/models"
	domsvc "PhiTrade/internal/domain/service"
	"PhiTrade/internal/services/encoding"
	"PhiTrade/pkg/logger"
)

// Config carries the engine limits. Zero values fall back to the documented
// defaults.
type Config struct {
	MinNashConfidence  float64 `yaml:"min_nash_confidence" default:"0.75"`
	EnableOptions      bool    `yaml:"enable_options" default:"true"`
	MaxPositionSizePct float64 `yaml:"max_position_size_pct" default:"0.1"`
	MaxLeverage        float64 `yaml:"max_leverage" default:"1.0"`
	HistoryCap         int     `yaml:"history_cap" default:"1000"`
	StartingCash       float64 `yaml:"starting_cash" default:"100000"`
}

func (c Config) withDefaults() Config {
	if c.MinNashConfidence <= 0 {
		c.MinNashConfidence = 0.75
	}
	if c.MaxPositionSizePct <= 0 {
		c.MaxPositionSizePct = 0.1
	}
	if c.MaxLeverage <= 0 {
		c.MaxLeverage = 1.0
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = 1000
	}
	if c.StartingCash <= 0 {
		c.StartingCash = 100000
	}
	return c
}

// Engine turns an equilibrium verdict plus a risk comparison into an
// executable decision. Scoring is delegated to the injected scorer; the
// engine only normalizes features, gates on confidence, sizes the position
// and keeps the audit trail. History and ledger are the only mutable state.
type Engine struct {
	cfg    Config
	enc    *encoding.Encoder
	scorer domsvc.ActionScorer
	log    *logger.Logger

	ledger *Ledger
	sizers map[models.Action]SizerFunc

	mu      sync.Mutex
	history []*models.TradingDecision
}

func NewEngine(enc *encoding.Encoder, scorer domsvc.ActionScorer, cfg Config, log *logger.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:    cfg,
		enc:    enc,
		scorer: scorer,
		log:    log,
		ledger: NewLedger(cfg.StartingCash),
		sizers: defaultSizers(),
	}
}

// RegisterSizer swaps the sizing model for one action variant.
func (e *Engine) RegisterSizer(action models.Action, fn SizerFunc) {
	e.sizers[action] = fn
}

func (e *Engine) Ledger() *Ledger { return e.ledger }

// Profile exposes the configured risk limits as a value record.
func (e *Engine) Profile() models.RiskProfile {
	return models.RiskProfile{
		MaxPositionSizePct: e.cfg.MaxPositionSizePct,
		MaxLeverage:        e.cfg.MaxLeverage,
		MinNashConfidence:  e.cfg.MinNashConfidence,
		EnableOptions:      e.cfg.EnableOptions,
	}
}

// NormalizeFeatures maps a market snapshot into the bounded feature vector
// the external scorer expects. Unbounded inputs squash through tanh or
// ratio forms so every component lands in [0,1] or [-1,1].
func (e *Engine) NormalizeFeatures(state models.MarketState) map[string]float64 {
	bandWidth := state.Bollinger.Upper - state.Bollinger.Lower
	bandPos := 0.5
	if bandWidth > 0 {
		bandPos = (state.Price - state.Bollinger.Lower) / bandWidth
		bandPos = math.Max(0, math.Min(1, bandPos))
	}
	return map[string]float64{
		"rsi":           state.RSI / 100,
		"macd":          math.Tanh(state.MACD),
		"bollinger_pos": bandPos,
		"volatility":    state.Volatility / (1 + state.Volatility),
		"volume":        math.Tanh(state.Volume / 1e6),
	}
}

// ComputeActionScores delegates to the external scorer over the normalized
// feature vector. Failures propagate unwrapped; the engine never guesses a
// fallback action.
func (e *Engine) ComputeActionScores(ctx context.Context, state models.MarketState) (map[models.Action]float64, error) {
	return e.scorer.Score(ctx, state.Symbol, e.NormalizeFeatures(state))
}

// SelectAction picks the highest-scoring allowed action. Off equilibrium
// the answer is always HOLD regardless of scores. Options variants are
// excluded unless enabled. Ties break alphabetically for determinism.
func (e *Engine) SelectAction(scores map[models.Action]float64, eq models.NashEquilibriumResult) models.Action {
	if !eq.IsEquilibrium {
		return models.ActionHold
	}
	best := models.ActionHold
	bestScore := math.Inf(-1)
	for _, a := range models.Actions() {
		s, ok := scores[a]
		if !ok {
			continue
		}
		if a.IsOption() && !e.cfg.EnableOptions {
			continue
		}
		if s > bestScore || (s == bestScore && a < best) {
			best = a
			bestScore = s
		}
	}
	return best
}

// SizePosition converts portfolio value into a whole-unit quantity: base
// notional scaled down by volatility, boosted by the encoding-density
// analogue bounded to 2x, then shaped by the action's sizer.
func (e *Engine) SizePosition(action models.Action, state models.MarketState, eq models.NashEquilibriumResult, portfolioValue float64) int64 {
	if action == models.ActionHold || state.Price <= 0 || portfolioValue <= 0 {
		return 0
	}
	notional := portfolioValue * e.cfg.MaxPositionSizePct
	notional /= 1 + state.Volatility
	boost := 1 + eq.ConsciousnessAnalogue
	if boost > 2 {
		boost = 2
	}
	notional *= boost
	if limit := portfolioValue * e.cfg.MaxLeverage; notional > limit {
		notional = limit
	}
	if sizer, ok := e.sizers[action]; ok {
		notional = sizer(notional, state)
	}
	qty := int64(notional / state.Price)
	if qty < 0 {
		qty = 0
	}
	return qty
}

// Decide gates on equilibrium confidence, ranks actions and assembles the
// audited decision. A nil decision with a nil error means "no actionable
// signal"; errors always indicate malformed input or a missing dependency.
func (e *Engine) Decide(ctx context.Context, state models.MarketState, enc models.ZeckendorfDecomposition, eq models.NashEquilibriumResult, risk models.VaRComparison) (*models.TradingDecision, error) {
	if eq.Confidence < e.cfg.MinNashConfidence || !eq.MeetsThreshold {
		e.log.Debug("decision gated",
			logger.String("symbol", state.Symbol),
			logger.Any("confidence", eq.Confidence),
			logger.Bool("meets_threshold", eq.MeetsThreshold))
		return nil, nil
	}

	scores, err := e.ComputeActionScores(ctx, state)
	if err != nil {
		return nil, err
	}

	action := e.SelectAction(scores, eq)
	portfolioValue := e.ledger.Value(func(string) float64 { return state.Price })
	quantity := e.SizePosition(action, state, eq, portfolioValue)

	decision := &models.TradingDecision{
		Action:         action,
		Symbol:         state.Symbol,
		Quantity:       quantity,
		Price:          state.Price,
		Confidence:     eq.Confidence,
		Equilibrium:    eq,
		ReasoningTrace: e.reasoningTrace(state, enc, eq, risk, scores, action, quantity),
		Risk:           risk,
		Encoding:       enc,
		Timestamp:      time.Now(),
	}

	e.mu.Lock()
	e.history = append(e.history, decision)
	if len(e.history) > e.cfg.HistoryCap {
		e.history = e.history[len(e.history)-e.cfg.HistoryCap:]
	}
	e.mu.Unlock()

	return decision, nil
}

func (e *Engine) reasoningTrace(state models.MarketState, enc models.ZeckendorfDecomposition, eq models.NashEquilibriumResult, risk models.VaRComparison, scores map[models.Action]float64, action models.Action, quantity int64) []string {
	trace := []string{
		fmt.Sprintf("market: %s price=%.2f vol=%.4f rsi=%.1f macd=%.4f", state.Symbol, state.Price, state.Volatility, state.RSI, state.MACD),
		fmt.Sprintf("equilibrium: verdict=%v confidence=%.2f", eq.IsEquilibrium, eq.Confidence),
	}
	trace = append(trace, "criteria: "+eq.Reason)

	type ranked struct {
		action models.Action
		score  float64
	}
	list := make([]ranked, 0, len(scores))
	for a, s := range scores {
		list = append(list, ranked{a, s})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].action < list[j].action
	})
	for i := 0; i < 3 && i < len(list); i++ {
		trace = append(trace, fmt.Sprintf("score #%d: %s=%.4f", i+1, list[i].action, list[i].score))
	}

	trace = append(trace, fmt.Sprintf("risk: var=%.4f (%s)", risk.Recommended, risk.Recommendation))
	trace = append(trace, fmt.Sprintf("zeckendorf: %d -> indices=%v values=%v", enc.Sum(), enc.Indices, enc.Values))

	support, resistance := e.enc.SupportResistance(enc.Sum(), 3)
	trace = append(trace, fmt.Sprintf("fibonacci levels: support=%v resistance=%v", support, resistance))

	trace = append(trace, fmt.Sprintf("final: %s qty=%d at S_n=%.3g", action, quantity, eq.Sn))
	return trace
}

// Execute applies a decision to the ledger. Insufficient funds or shares is
// a recoverable business outcome, reported as false rather than an error.
// HOLD and zero-quantity decisions succeed without touching the book.
func (e *Engine) Execute(decision *models.TradingDecision) bool {
	if decision == nil {
		return false
	}
	if decision.Action == models.ActionHold || decision.Quantity == 0 {
		return true
	}

	key := instrumentKey(decision.Symbol, decision.Action)
	var ok bool
	switch decision.Action {
	case models.ActionSell:
		ok = e.ledger.Sell(key, decision.Quantity, decision.Price)
	default:
		ok = e.ledger.Buy(key, decision.Quantity, decision.Price)
	}
	if !ok {
		e.log.Warn("execution rejected",
			logger.String("symbol", decision.Symbol),
			logger.String("action", string(decision.Action)),
			logger.Int64("quantity", decision.Quantity))
	}
	return ok
}

// History returns a chronological snapshot of retained decisions.
func (e *Engine) History() []*models.TradingDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.TradingDecision, len(e.history))
	copy(out, e.history)
	return out
}

// Stats summarizes the bounded history.
func (e *Engine) Stats() models.DecisionStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := models.DecisionStats{ByAction: make(map[models.Action]int)}
	stats.TotalDecisions = len(e.history)
	if stats.TotalDecisions == 0 {
		return stats
	}
	confSum := 0.0
	for _, d := range e.history {
		stats.ByAction[d.Action]++
		confSum += d.Confidence
		if d.Equilibrium.IsEquilibrium {
			stats.NashDecisions++
		}
	}
	stats.AvgConfidence = confSum / float64(stats.TotalDecisions)
	stats.EquilibriumRate = float64(stats.NashDecisions) / float64(stats.TotalDecisions)
	return stats
}
