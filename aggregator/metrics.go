package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	currentStatsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_current_stats_cache_hits_total",
		Help: "Count of current-epoch requests served from the in-memory cache.",
	})
	currentStatsRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_current_stats_rebuilds_total",
		Help: "Count of full current-epoch rebuilds from upstream state.",
	})
	currentStatsStaleServes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_current_stats_stale_serves_total",
		Help: "Count of current-epoch requests served from a stale cache copy after an upstream failure.",
	})
	historicalCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_historical_epoch_requests_total",
		Help: "Count of historical epoch requests by cache outcome.",
	}, []string{"outcome"})
	epochTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_epoch_transitions_total",
		Help: "Count of epoch transitions detected while refreshing current stats.",
	})
	refreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_refresh_duration_seconds",
		Help:    "Duration of background refresh sweeps by kind.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})
)
