// Package metrics registers the Prometheus metrics for the generation layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationRequests counts finished generation requests by route and
	// outcome ("generated", "memory", "database", "replay", or an error code).
	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumatch_generation_requests_total",
			Help: "Total generation requests by outcome.",
		},
		[]string{"route", "outcome"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumatch_generation_cache_hits_total",
			Help: "Generation responses served from a cache tier.",
		},
		[]string{"route", "source"},
	)

	// GenerationDuration observes time spent waiting on the model.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resumatch_generation_duration_seconds",
			Help:    "Model generation latency in seconds.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"route"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumatch_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)

	// RateLimitFallback counts checks served by the in-process counter.
	RateLimitFallback = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resumatch_rate_limit_fallback_total",
			Help: "Rate limit checks answered by the in-memory fallback.",
		},
	)

	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumatch_persist_failures_total",
			Help: "Generation results that could not be saved.",
		},
		[]string{"route"},
	)
)
