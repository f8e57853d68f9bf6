package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	handlerTimer = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "handler_timing_seconds",
			Help:      "Bucketed histogram of handler timings",

			// 1ms to 30s
			Buckets: prometheus.ExponentialBuckets(.001, 2, 15),
		},
		[]string{"handler"},
	)

	responses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "Responses by handler and status bucket",
		},
		[]string{"handler", "status"},
	)
)

func init() {
	prometheus.MustRegister(handlerTimer)
	prometheus.MustRegister(responses)
}
