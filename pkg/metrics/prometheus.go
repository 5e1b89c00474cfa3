package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	ordersTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	lossStreak   *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_signals_total",
				Help: "Total number of generated signals by direction",
			},
			[]string{"symbol", "direction"},
		),
		ordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_orders_total",
				Help: "Total number of order attempts by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepilot_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lossStreak: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepilot_consecutive_losses",
				Help: "Current consecutive loss streak per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordSignal records a generated signal.
func (r *Recorder) RecordSignal(symbol, direction string) {
	r.signalsTotal.WithLabelValues(symbol, direction).Inc()
}

// RecordOrder records an order attempt outcome.
func (r *Recorder) RecordOrder(symbol, outcome string) {
	r.ordersTotal.WithLabelValues(symbol, outcome).Inc()
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

// RecordConsecutiveLosses records the loss streak gauge.
func (r *Recorder) RecordConsecutiveLosses(symbol string, count int) {
	r.lossStreak.WithLabelValues(symbol).Set(float64(count))
}
