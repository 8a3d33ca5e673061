// Package metrics declares the prometheus collectors shared by the engine
// and executor tasks.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the engine and executor report to.
type Metrics struct {
	DispatchLatency   prometheus.Histogram
	SignalsEmitted    *prometheus.CounterVec
	SignalsDropped    prometheus.Counter
	SubmissionLatency prometheus.Histogram
	SkipReasons       *prometheus.CounterVec
	OrdersSubmitted   prometheus.Counter
	OrdersFailed      prometheus.Counter
}

// New constructs and registers the collector set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_engine_dispatch_latency_seconds",
			Help:    "Time spent evaluating a trio after a top-of-book update.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16),
		}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_engine_signals_emitted_total",
			Help: "Arbitrage signals emitted, by strategy.",
		}, []string{"strategy"}),
		SignalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_engine_signals_dropped_total",
			Help: "Signals dropped because the bounded signal channel was full.",
		}),
		SubmissionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_executor_submission_latency_seconds",
			Help:    "End-to-end latency of a batch order submission.",
			Buckets: prometheus.DefBuckets,
		}),
		SkipReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_executor_skips_total",
			Help: "Signals skipped by the executor's validation gates, by reason.",
		}, []string{"reason"}),
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_executor_orders_submitted_total",
			Help: "Orders successfully placed.",
		}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_executor_orders_failed_total",
			Help: "Orders rejected by the exchange.",
		}),
	}

	reg.MustRegister(
		m.DispatchLatency,
		m.SignalsEmitted,
		m.SignalsDropped,
		m.SubmissionLatency,
		m.SkipReasons,
		m.OrdersSubmitted,
		m.OrdersFailed,
	)

	return m
}
