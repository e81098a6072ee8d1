package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricGenerationsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeboard",
		Name:      "generations_started_total",
		Help:      "Number of generation requests accepted by the dispatcher.",
	}, []string{"media"})

	metricGenerationsSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeboard",
		Name:      "generations_succeeded_total",
		Help:      "Number of generations that reached a succeeded terminal state.",
	}, []string{"provider", "media"})

	metricGenerationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeboard",
		Name:      "generations_failed_total",
		Help:      "Number of generations that exhausted every candidate provider.",
	}, []string{"media"})

	metricFallbackAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeboard",
		Name:      "provider_attempts_total",
		Help:      "Per-provider generation attempts, including fallback retries.",
	}, []string{"provider", "media"})

	metricCapabilityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeboard",
		Name:      "capability_rejections_total",
		Help:      "Requests rejected because no usable provider had a required capability.",
	}, []string{"capability"})

	metricCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vibeboard",
		Name:      "provider_call_duration_seconds",
		Help:      "Wall time of individual provider adapter calls.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"provider", "media"})
)
