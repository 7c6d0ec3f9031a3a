package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_requests_total",
			Help: "Total number of submitted messages by path and result code",
		},
		[]string{"path", "code"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_promise_resolutions_total",
			Help: "Total number of resolved promises by callback and remote outcome",
		},
		[]string{"callback", "success"},
	)

	abandonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_promises_abandoned_total",
			Help: "Total number of promises resolved as failed after a restart",
		},
	)

	promisesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvest_promises_in_flight",
			Help: "Number of dispatched promises waiting for resolution",
		},
	)

	callDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvest_promise_execution_duration_seconds",
			Help:    "Duration of executing the calls of a single promise",
			Buckets: prometheus.DefBuckets,
		},
	)
)
