package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	completedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "core",
			Name:      "completed_total",
			Help:      "Number of envelopes relayed to completion",
		},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "core",
			Name:      "failures_total",
			Help:      "Number of failed envelopes by failure kind",
		},
		[]string{"kind"},
	)

	dispatchTimer = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "core",
			Name:      "dispatch_timing_seconds",
			Help:      "Bucketed histogram of downstream dispatch timings",

			// 1ms to 30s
			Buckets: prometheus.ExponentialBuckets(.001, 2, 15),
		},
	)
)

func init() {
	prometheus.MustRegister(completedTotal)
	prometheus.MustRegister(failuresTotal)
	prometheus.MustRegister(dispatchTimer)
}
