package risk

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"PhiTrade/internal/domain/models"
	"PhiTrade/internal/services/encoding"
	"PhiTrade/pkg/logger"
)

// Config carries the estimator knobs. Zero values fall back to the
// documented defaults.
type Config struct {
	ConfidenceLevel      float64 `yaml:"confidence_level" default:"0.95"`
	TimeHorizonDays      int     `yaml:"time_horizon_days" default:"1"`
	Simulations          int     `yaml:"monte_carlo_simulations" default:"10000"`
	PhiWeighting         bool    `yaml:"phi_weighting" default:"true"`
	ZeckendorfVolatility bool    `yaml:"zeckendorf_volatility"`
	Seed                 int64   `yaml:"seed" default:"42"`
	TradingDaysPerYear   int     `yaml:"trading_days_per_year" default:"252"`
}

func (c Config) withDefaults() Config {
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		c.ConfidenceLevel = 0.95
	}
	if c.TimeHorizonDays <= 0 {
		c.TimeHorizonDays = 1
	}
	if c.Simulations <= 0 {
		c.Simulations = 10000
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.TradingDaysPerYear <= 0 {
		c.TradingDaysPerYear = 252
	}
	return c
}

// Estimator computes value-at-risk by three independent methods and
// reconciles them. It holds no per-call state beyond the seeded RNG, which
// a mutex guards so one estimator can serve concurrent pipelines.
type Estimator struct {
	cfg Config
	enc *encoding.Encoder
	log *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEstimator(enc *encoding.Encoder, cfg Config, log *logger.Logger) *Estimator {
	cfg = cfg.withDefaults()
	return &Estimator{
		cfg: cfg,
		enc: enc,
		log: log,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// With derives an estimator with a different confidence level or horizon,
// keeping the remaining knobs and the seed.
func (e *Estimator) With(confidence float64, horizonDays int) *Estimator {
	cfg := e.cfg
	if confidence > 0 && confidence < 1 {
		cfg.ConfidenceLevel = confidence
	}
	if horizonDays > 0 {
		cfg.TimeHorizonDays = horizonDays
	}
	return NewEstimator(e.enc, cfg, e.log)
}

// Historical computes VaR from the empirical return distribution. With phi
// weighting enabled, returns below the (1-confidence) quantile are
// amplified by φ before the quantile is re-extracted, fattening the modeled
// tail.
func (e *Estimator) Historical(symbol string, prices []models.PricePoint) (models.VaRResult, error) {
	returns, err := LogReturns(prices)
	if err != nil {
		return models.VaRResult{}, err
	}
	stats := sampleStats(returns)
	alpha := 1 - e.cfg.ConfidenceLevel
	scale := math.Sqrt(float64(e.cfg.TimeHorizonDays))

	working := sortedCopy(returns)
	if e.cfg.PhiWeighting {
		cut := quantile(working, alpha)
		for i, r := range working {
			if r < cut {
				working[i] = r * encoding.Phi
			}
		}
		sort.Float64s(working)
	}

	q := quantile(working, alpha)
	varEst := math.Max(0, -q*scale)

	tailSum, tailN := 0.0, 0
	for _, r := range working {
		if r <= q {
			tailSum += r
			tailN++
		}
	}
	es := varEst
	if tailN > 0 {
		es = math.Max(varEst, -tailSum/float64(tailN)*scale)
	}

	return models.VaRResult{
		Symbol:               symbol,
		Method:               models.VaRHistorical,
		VaR:                  varEst,
		ConfidenceLevel:      e.cfg.ConfidenceLevel,
		TimeHorizonDays:      e.cfg.TimeHorizonDays,
		ExpectedShortfall:    es,
		AnnualizedVolatility: stats.StdDev * math.Sqrt(float64(e.cfg.TradingDaysPerYear)),
		Stats:                stats,
		Timestamp:            time.Now(),
	}, nil
}

// Parametric assumes normally distributed returns. The z-score comes from a
// rational-polynomial inverse normal CDF; expected shortfall uses the
// standard closed form pdf(z)/(1-confidence).
func (e *Estimator) Parametric(symbol string, prices []models.PricePoint) (models.VaRResult, error) {
	returns, err := LogReturns(prices)
	if err != nil {
		return models.VaRResult{}, err
	}
	stats := sampleStats(returns)
	h := float64(e.cfg.TimeHorizonDays)
	z := normalQuantile(e.cfg.ConfidenceLevel)

	varEst := math.Max(0, -stats.Mean*h+stats.StdDev*z*math.Sqrt(h))
	es := math.Max(varEst, -stats.Mean*h+stats.StdDev*math.Sqrt(h)*normalPDF(z)/(1-e.cfg.ConfidenceLevel))

	return models.VaRResult{
		Symbol:               symbol,
		Method:               models.VaRParametric,
		VaR:                  varEst,
		ConfidenceLevel:      e.cfg.ConfidenceLevel,
		TimeHorizonDays:      e.cfg.TimeHorizonDays,
		ExpectedShortfall:    es,
		AnnualizedVolatility: stats.StdDev * math.Sqrt(float64(e.cfg.TradingDaysPerYear)),
		Stats:                stats,
		Timestamp:            time.Now(),
	}, nil
}

// MonteCarlo simulates horizon-length paths with Box-Muller Gaussian shocks
// around the empirical moments. Results are sorted before quantile
// extraction so a fixed seed reproduces the estimate exactly.
func (e *Estimator) MonteCarlo(symbol string, prices []models.PricePoint) (models.VaRResult, error) {
	returns, err := LogReturns(prices)
	if err != nil {
		return models.VaRResult{}, err
	}
	stats := sampleStats(returns)

	sigma := stats.StdDev
	if e.cfg.ZeckendorfVolatility {
		if fv := e.fibonacciVolatility(returns); fv > 0 {
			sigma = fv
		}
	}

	horizon := e.cfg.TimeHorizonDays
	sims := make([]float64, e.cfg.Simulations)

	e.mu.Lock()
	for i := range sims {
		path := 0.0
		for d := 0; d < horizon; d++ {
			z := e.boxMuller()
			if e.cfg.PhiWeighting {
				z *= math.Pow(encoding.Phi, -float64(d)/float64(horizon))
			}
			path += stats.Mean + sigma*z
		}
		sims[i] = path
	}
	e.mu.Unlock()

	sort.Float64s(sims)
	alpha := 1 - e.cfg.ConfidenceLevel
	q := quantile(sims, alpha)
	varEst := math.Max(0, -q)

	tailSum, tailN := 0.0, 0
	for _, r := range sims {
		if r > q {
			break
		}
		tailSum += r
		tailN++
	}
	es := varEst
	if tailN > 0 {
		es = math.Max(varEst, -tailSum/float64(tailN))
	}

	return models.VaRResult{
		Symbol:               symbol,
		Method:               models.VaRMonteCarlo,
		VaR:                  varEst,
		ConfidenceLevel:      e.cfg.ConfidenceLevel,
		TimeHorizonDays:      e.cfg.TimeHorizonDays,
		ExpectedShortfall:    es,
		AnnualizedVolatility: sigma * math.Sqrt(float64(e.cfg.TradingDaysPerYear)),
		Stats:                stats,
		Timestamp:            time.Now(),
	}, nil
}

// boxMuller draws one standard normal deviate. Callers hold e.mu.
func (e *Estimator) boxMuller() float64 {
	u1 := e.rng.Float64()
	for u1 == 0 {
		u1 = e.rng.Float64()
	}
	u2 := e.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// fibonacciVolatility weights recent returns by Fibonacci numbers, newest
// term getting the largest weight, and takes the weighted standard
// deviation around the weighted mean.
func (e *Estimator) fibonacciVolatility(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	weights := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		w := float64(e.enc.Fibonacci(i + 1))
		if w == 0 {
			w = float64(e.enc.Fibonacci(90))
		}
		weights[i] = w
		total += w
	}
	mean := 0.0
	for i, r := range returns {
		mean += r * weights[i] / total
	}
	variance := 0.0
	for i, r := range returns {
		d := r - mean
		variance += d * d * weights[i] / total
	}
	return math.Sqrt(variance)
}

// Reconcile summarizes the available estimates and applies the agreement
// rule: method stddev under 10% of the mean means high confidence in the
// average, under 20% moderate, anything wider falls back to the maximum.
func (e *Estimator) Reconcile(symbol string, results []models.VaRResult) models.VaRComparison {
	cmp := models.VaRComparison{Symbol: symbol, Results: results, Timestamp: time.Now()}
	if len(results) == 0 {
		cmp.Recommendation = "no estimates available"
		return cmp
	}

	vars := make([]float64, len(results))
	for i, r := range results {
		vars[i] = r.VaR
	}
	s := sampleStats(vars)
	cmp.Mean, cmp.StdDev, cmp.Min, cmp.Max = s.Mean, s.StdDev, s.Min, s.Max

	switch {
	case len(results) == 1:
		cmp.Recommended = s.Mean
		cmp.Recommendation = fmt.Sprintf("single method (%s), using its estimate", results[0].Method)
	case s.Mean > 0 && s.StdDev < 0.10*s.Mean:
		cmp.Recommended = s.Mean
		cmp.Recommendation = "high confidence: methods agree, use average"
	case s.Mean > 0 && s.StdDev < 0.20*s.Mean:
		cmp.Recommended = s.Mean
		cmp.Recommendation = "moderate agreement: use average"
	case s.Mean == 0:
		cmp.Recommended = 0
		cmp.Recommendation = "degenerate series: no measurable risk"
	default:
		cmp.Recommended = s.Max
		cmp.Recommendation = "divergent estimates: use maximum (conservative)"
	}
	return cmp
}

// Estimate runs all three methods and reconciles whatever succeeded. A
// method failing on insufficient data drops out of the comparison instead
// of aborting the others; only when every method fails does the error
// surface.
func (e *Estimator) Estimate(symbol string, prices []models.PricePoint) (models.VaRComparison, error) {
	var results []models.VaRResult
	var firstErr error

	for _, run := range []func(string, []models.PricePoint) (models.VaRResult, error){
		e.Historical, e.Parametric, e.MonteCarlo,
	} {
		r, err := run(symbol, prices)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			e.log.Warn("var method failed",
				logger.String("symbol", symbol),
				logger.Error(err))
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return models.VaRComparison{}, firstErr
	}
	return e.Reconcile(symbol, results), nil
}

// Portfolio collapses weighted per-asset series into one synthetic return
// series and prices a parametric VaR on it. Series must share a common
// length; the shortest bounds the synthesis.
func (e *Estimator) Portfolio(name string, assets []models.WeightedSeries) (models.VaRResult, error) {
	if len(assets) == 0 {
		return models.VaRResult{}, &models.InsufficientDataError{Op: "portfolio var", Need: 1, Got: 0}
	}

	perAsset := make([][]float64, len(assets))
	minLen := math.MaxInt
	for i, a := range assets {
		r, err := LogReturns(a.Prices)
		if err != nil {
			return models.VaRResult{}, err
		}
		perAsset[i] = r
		if len(r) < minLen {
			minLen = len(r)
		}
	}

	combined := make([]models.PricePoint, minLen+1)
	level := 1.0
	combined[0] = models.PricePoint{Price: level}
	for t := 0; t < minLen; t++ {
		r := 0.0
		for i, a := range assets {
			r += a.Weight * perAsset[i][t]
		}
		level *= math.Exp(r)
		combined[t+1] = models.PricePoint{Price: level}
	}

	res, err := e.Parametric(name, combined)
	if err != nil {
		return models.VaRResult{}, err
	}
	return res, nil
}
