package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_scheduler_task_failures_total",
		Help: "Count of failed refresh task runs by task.",
	}, []string{"task"})
	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_scheduler_task_duration_seconds",
		Help:    "Duration of successful refresh task runs by task.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"task"})
)
