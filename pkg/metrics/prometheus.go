package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	decisions    *prometheus.CounterVec
	equilibria   *prometheus.CounterVec
	varEstimate  *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phitrade_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phitrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phitrade_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phitrade_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phitrade_decisions_total",
				Help: "Total trading decisions emitted, by action",
			},
			[]string{"action"},
		),
		equilibria: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phitrade_equilibrium_detections_total",
				Help: "Stability detections, split by strict equilibrium verdict",
			},
			[]string{"symbol", "strict"},
		),
		varEstimate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phitrade_value_at_risk",
				Help: "Latest VaR estimate as a fraction of portfolio value",
			},
			[]string{"method", "symbol"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordDecision counts an emitted trading decision.
func (r *Recorder) RecordDecision(action string) {
	r.decisions.WithLabelValues(action).Inc()
}

// RecordEquilibrium counts a stability detection.
func (r *Recorder) RecordEquilibrium(symbol string, strict bool) {
	v := "false"
	if strict {
		v = "true"
	}
	r.equilibria.WithLabelValues(symbol, v).Inc()
}

// RecordVaR records the latest VaR estimate for a method/symbol pair.
func (r *Recorder) RecordVaR(method, symbol string, value float64) {
	r.varEstimate.WithLabelValues(method, symbol).Set(value)
}
