package chainclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Count of upstream REST requests by outcome.",
	}, []string{"outcome"})
	upstreamFailovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_upstream_failovers_total",
		Help: "Count of rotations to the next upstream base URL after a failed request.",
	})
	upstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Latency of individual upstream REST requests.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)
