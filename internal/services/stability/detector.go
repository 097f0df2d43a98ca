package stability

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"PhiTrade/internal/domain/models"
	"PhiTrade/internal/services/encoding"
)

// Config carries the detector thresholds. Zero values fall back to the
// documented defaults.
type Config struct {
	NashThreshold          float64 // default 1e-6
	ConsciousnessThreshold float64 // default 1/φ
	LyapunovWindow         int     // default 10
	LucasCheckRange        uint64  // default 5
	WindowCap              int     // default 100
}

func (c Config) withDefaults() Config {
	if c.NashThreshold <= 0 {
		c.NashThreshold = 1e-6
	}
	if c.ConsciousnessThreshold <= 0 {
		c.ConsciousnessThreshold = encoding.PhiInverse
	}
	if c.LyapunovWindow <= 0 {
		c.LyapunovWindow = 10
	}
	if c.LucasCheckRange == 0 {
		c.LucasCheckRange = 5
	}
	if c.WindowCap <= 0 {
		c.WindowCap = 100
	}
	return c
}

// lyapunovTolerance admits V(n+1) <= V(n) * 1.01 as a non-increasing
// transition; the check is tolerant, not strictly monotone.
const lyapunovTolerance = 1.01

// lyapunovPassRatio is the fraction of tolerant transitions required.
const lyapunovPassRatio = 0.70

// Detector declares strategic (Nash) equilibrium from four independent
// criteria. It owns a bounded FIFO trajectory window; appends and reads are
// serialized by a mutex so one detector can be shared across workers.
type Detector struct {
	cfg Config
	enc *encoding.Encoder

	mu     sync.Mutex
	window *trajectoryWindow
}

func NewDetector(enc *encoding.Encoder, cfg Config) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		cfg:    cfg,
		enc:    enc,
		window: newTrajectoryWindow(cfg.WindowCap),
	}
}

// Window returns a chronological snapshot of the retained trajectory.
func (d *Detector) Window() []models.StabilityTrajectoryPoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window.tail(d.window.len())
}

// Detect appends the trajectory point and evaluates the four equilibrium
// criteria. The Lucas boundary check applies to the FIRST feature encoding,
// which by contract is the price encoding. "Not at equilibrium" is a valid
// result, not an error.
func (d *Detector) Detect(state models.MarketState, pt models.StabilityTrajectoryPoint, feats []models.ZeckendorfDecomposition) models.NashEquilibriumResult {
	if pt.LyapunovV == 0 && pt.Sn != 0 {
		pt.LyapunovV = pt.Sn * pt.Sn
	}

	d.mu.Lock()
	d.window.push(pt)
	trail := d.window.tail(d.cfg.LyapunovWindow)
	d.mu.Unlock()

	isStable := pt.Sn < d.cfg.NashThreshold
	lyapunovStable, passRatio := lyapunovTrend(trail)

	var boundary models.LucasBoundary
	if len(feats) > 0 {
		boundary = d.lucasBoundary(feats[0].Sum())
	}

	analogue := d.consciousnessAnalogue(feats)
	meetsThreshold := analogue >= d.cfg.ConsciousnessThreshold

	isEquilibrium := isStable && lyapunovStable && boundary.IsLucas && meetsThreshold

	confidence := 0.0
	if isStable {
		confidence += 0.3
	}
	if lyapunovStable {
		confidence += 0.3
	}
	if boundary.IsLucas {
		confidence += 0.2
	}
	if meetsThreshold {
		confidence += 0.2
	}

	var b strings.Builder
	fmt.Fprintf(&b, "strategic: S_n=%.3g < %.3g: %v\n", pt.Sn, d.cfg.NashThreshold, isStable)
	fmt.Fprintf(&b, "lyapunov: %.0f%% non-increasing transitions over %d points: %v\n", passRatio*100, len(trail), lyapunovStable)
	fmt.Fprintf(&b, "lucas boundary: nearest L_%d=%d at distance %d: %v\n", boundary.NearestIndex, boundary.NearestLucas, boundary.Distance, boundary.IsLucas)
	fmt.Fprintf(&b, "encoding density: %.4f vs threshold %.4f: %v", analogue, d.cfg.ConsciousnessThreshold, meetsThreshold)

	ts := pt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return models.NashEquilibriumResult{
		IsEquilibrium:         isEquilibrium,
		Sn:                    pt.Sn,
		LyapunovV:             pt.LyapunovV,
		LyapunovStable:        lyapunovStable,
		ConsciousnessAnalogue: analogue,
		MeetsThreshold:        meetsThreshold,
		Lucas:                 boundary,
		Confidence:            confidence,
		Reason:                b.String(),
		Timestamp:             ts,
	}
}

// lyapunovTrend checks the tolerant monotonic-decrease criterion over the
// trailing window. With fewer than 2 points the trend is vacuously stable
// (documented default, not an error).
func lyapunovTrend(trail []models.StabilityTrajectoryPoint) (stable bool, ratio float64) {
	if len(trail) < 2 {
		return true, 1.0
	}
	passed := 0
	total := len(trail) - 1
	for i := 1; i < len(trail); i++ {
		if trail[i].LyapunovV <= trail[i-1].LyapunovV*lyapunovTolerance {
			passed++
		}
	}
	ratio = float64(passed) / float64(total)
	return ratio >= lyapunovPassRatio, ratio
}

// lucasBoundary tests the exact condition scaled+1 == L_m and otherwise
// reports the nearest Lucas term. "Near" within the configured range keeps
// the distance observable but does not satisfy the strict boundary.
func (d *Detector) lucasBoundary(scaled uint64) models.LucasBoundary {
	target := scaled + 1
	limit := 50
	if limit > d.enc.LucasLen() {
		limit = d.enc.LucasLen()
	}
	for m := 0; m < limit; m++ {
		if d.enc.Lucas(m) == target {
			return models.LucasBoundary{IsLucas: true, Near: true, NearestLucas: target, NearestIndex: m, Distance: 0}
		}
	}
	value, index, distance := d.enc.NearestLucas(target)
	return models.LucasBoundary{
		IsLucas:      false,
		Near:         distance <= d.cfg.LucasCheckRange,
		NearestLucas: value,
		NearestIndex: index,
		Distance:     distance,
	}
}

// consciousnessAnalogue scores encoding density: each Zeckendorf term across
// the feature encodings contributes φ^(-i) * exp(-i/10) where i is the term's
// rank in the collected list, normalized by term count. Sparse encodings
// (few terms) score high, dense ones decay toward zero.
func (d *Detector) consciousnessAnalogue(feats []models.ZeckendorfDecomposition) float64 {
	sum := 0.0
	count := 0
	for _, f := range feats {
		for range f.Indices {
			i := float64(count)
			sum += math.Pow(encoding.Phi, -i) * math.Exp(-i/10)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	v := sum / float64(count)
	if v > 1 {
		v = 1
	}
	return v
}
