package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PhiTrade/internal/domain/models"
	domrepo "PhiTrade/internal/domain/repository"
	domsvc "PhiTrade/internal/domain/service"
	svccache "PhiTrade/internal/service/cache"
	"PhiTrade/internal/services/decision"
	"PhiTrade/internal/services/encoding"
	"PhiTrade/internal/services/features"
	"PhiTrade/internal/services/risk"
	"PhiTrade/internal/services/stability"
	"PhiTrade/pkg/logger"
	"PhiTrade/pkg/queue"
)

const decisionAuditType = "decision.audit"

// DecisionPipeline runs the full per-symbol evaluation: build market state,
// encode onto the integer lattice, detect equilibrium, estimate risk and
// decide. Each symbol owns one detector so trajectory windows never mix;
// everything else is shared and safe for concurrent use.
type DecisionPipeline struct {
	enc        *encoding.Encoder
	estimator  *risk.Estimator
	engine     *decision.Engine
	trajectory domsvc.TrajectorySource

	prices  domrepo.PriceStore
	metrics domrepo.Metrics
	audit   queue.QueueService
	log     *logger.Logger

	detectorCfg   stability.Config
	historyPoints int
	timeframe     string
	varTTL        time.Duration

	mu        sync.Mutex
	detectors map[string]*stability.Detector
	varCache  *svccache.TTLCache
}

type PipelineDeps struct {
	Encoder    *encoding.Encoder
	Estimator  *risk.Estimator
	Engine     *decision.Engine
	Trajectory domsvc.TrajectorySource
	Prices     domrepo.PriceStore
	Metrics    domrepo.Metrics
	Audit      queue.QueueService
	Logger     *logger.Logger
}

type PipelineConfig struct {
	Detector      stability.Config
	HistoryPoints int
	Timeframe     string
	VaRTTL        time.Duration
}

func NewDecisionPipeline(deps PipelineDeps, cfg PipelineConfig) *DecisionPipeline {
	if cfg.HistoryPoints <= 0 {
		cfg.HistoryPoints = 250
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1m"
	}
	if cfg.VaRTTL <= 0 {
		cfg.VaRTTL = 30 * time.Second
	}
	return &DecisionPipeline{
		enc:           deps.Encoder,
		estimator:     deps.Estimator,
		engine:        deps.Engine,
		trajectory:    deps.Trajectory,
		prices:        deps.Prices,
		metrics:       deps.Metrics,
		audit:         deps.Audit,
		log:           deps.Logger,
		detectorCfg:   cfg.Detector,
		historyPoints: cfg.HistoryPoints,
		timeframe:     cfg.Timeframe,
		varTTL:        cfg.VaRTTL,
		detectors:     make(map[string]*stability.Detector),
		varCache:      svccache.NewTTLCache(),
	}
}

func (p *DecisionPipeline) detector(symbol string) *stability.Detector {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.detectors[symbol]
	if !ok {
		d = stability.NewDetector(p.enc, p.detectorCfg)
		p.detectors[symbol] = d
	}
	return d
}

// Evaluate runs one decision call for a symbol. A nil decision with nil
// error means no actionable signal; errors indicate malformed input or a
// failed collaborator.
func (p *DecisionPipeline) Evaluate(ctx context.Context, symbol string) (*models.TradingDecision, error) {
	start := time.Now()

	history, err := p.prices.History(ctx, symbol, p.historyPoints)
	if err != nil {
		p.metrics.RecordError("pipeline_history")
		return nil, fmt.Errorf("price history for %s: %w", symbol, err)
	}

	// history serves prices only; live volume arrives with ticks and is
	// not needed by the evaluation itself
	state, err := features.BuildMarketState(symbol, history, 0, p.timeframe)
	if err != nil {
		return nil, err
	}

	encoded, err := p.encodeState(state)
	if err != nil {
		// fail fast: a state whose price cannot be encoded cannot be
		// reasoned about
		p.metrics.RecordError("pipeline_encode")
		return nil, err
	}

	pt, err := p.trajectory.Next(ctx, symbol, state)
	if err != nil {
		p.metrics.RecordError("pipeline_trajectory")
		return nil, err
	}

	eq := p.detector(symbol).Detect(state, pt, encoded)
	p.metrics.RecordEquilibrium(symbol, eq.IsEquilibrium)

	cmp, err := p.estimateVaR(symbol, history)
	if err != nil {
		p.metrics.RecordError("pipeline_var")
		return nil, err
	}
	for _, r := range cmp.Results {
		p.metrics.RecordVaR(string(r.Method), symbol, r.VaR)
	}

	d, err := p.engine.Decide(ctx, state, encoded[0], eq, cmp)
	if err != nil {
		return nil, err
	}
	if d == nil {
		p.log.Debug("no actionable signal",
			logger.String("symbol", symbol),
			logger.Any("confidence", eq.Confidence))
		return nil, nil
	}

	p.metrics.RecordDecision(string(d.Action))
	p.metrics.RecordLatency("pipeline_evaluate", time.Since(start).Seconds())

	if p.audit != nil {
		if err := p.audit.PublishMessage(ctx, decisionAuditType, d); err != nil {
			p.log.Warn("decision audit enqueue failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}
	return d, nil
}

// EvaluateAndExecute runs Evaluate and applies the outcome to the ledger.
func (p *DecisionPipeline) EvaluateAndExecute(ctx context.Context, symbol string) (*models.TradingDecision, bool, error) {
	d, err := p.Evaluate(ctx, symbol)
	if err != nil || d == nil {
		return d, false, err
	}
	return d, p.engine.Execute(d), nil
}

// encodeState builds the Zeckendorf feature encodings; price first, by
// contract the boundary-check feature.
func (p *DecisionPipeline) encodeState(state models.MarketState) ([]models.ZeckendorfDecomposition, error) {
	type source struct {
		id    string
		value float64
		unit  models.Unit
	}
	sources := []source{
		{"price", state.Price, models.UnitPrice},
		{"volatility", state.Volatility, models.UnitRate},
		{"rsi", state.RSI, models.UnitPercent},
	}

	out := make([]models.ZeckendorfDecomposition, 0, len(sources))
	for i, src := range sources {
		sv, err := p.enc.Scale(src.id, src.value, src.unit)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			continue // secondary features may sit at zero legitimately
		}
		d, err := p.enc.Decompose(sv.Scaled)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (p *DecisionPipeline) estimateVaR(symbol string, history []models.PricePoint) (models.VaRComparison, error) {
	if v, ok := p.varCache.Get("var:" + symbol); ok {
		if cmp, ok := v.(models.VaRComparison); ok {
			return cmp, nil
		}
	}
	cmp, err := p.estimator.Estimate(symbol, history)
	if err != nil {
		return models.VaRComparison{}, err
	}
	p.varCache.Set("var:"+symbol, cmp, p.varTTL)
	return cmp, nil
}

// Stats exposes the engine's bounded-history statistics.
func (p *DecisionPipeline) Stats() models.DecisionStats { return p.engine.Stats() }

// Positions exposes the engine ledger's current holdings.
func (p *DecisionPipeline) Positions() []models.Position {
	return p.engine.Ledger().Positions()
}

// VaR runs the three-method estimate directly, bypassing the cache.
// Non-zero confidence/horizon override the configured values for this call.
func (p *DecisionPipeline) VaR(ctx context.Context, symbol string, confidence float64, horizonDays int) (models.VaRComparison, error) {
	history, err := p.prices.History(ctx, symbol, p.historyPoints)
	if err != nil {
		return models.VaRComparison{}, fmt.Errorf("price history for %s: %w", symbol, err)
	}
	est := p.estimator
	if confidence > 0 || horizonDays > 0 {
		est = est.With(confidence, horizonDays)
	}
	return est.Estimate(symbol, history)
}

// Encode exposes the scale-and-decompose operation for ad hoc inspection.
func (p *DecisionPipeline) Encode(sourceID string, value float64, unit models.Unit) (models.ScaledValue, models.ZeckendorfDecomposition, models.PhaseCoordinate, error) {
	sv, err := p.enc.Scale(sourceID, value, unit)
	if err != nil {
		return models.ScaledValue{}, models.ZeckendorfDecomposition{}, models.PhaseCoordinate{}, err
	}
	d, err := p.enc.Decompose(sv.Scaled)
	if err != nil {
		return models.ScaledValue{}, models.ZeckendorfDecomposition{}, models.PhaseCoordinate{}, err
	}
	return sv, d, p.enc.PhaseCoordinate(d), nil
}
