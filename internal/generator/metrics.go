// internal/generator/metrics.go
package generator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classkit_generations_total",
			Help: "Total number of content generations, by activity and outcome.",
		},
		[]string{"activity", "outcome"}, // outcome: success, fallback, failed, cancelled
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classkit_generation_duration_seconds",
			Help:    "Histogram of content generation durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"activity"},
	)
	itemsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classkit_generated_items_rejected_total",
			Help: "Generated items discarded because they did not match the activity's shape.",
		},
		[]string{"activity"},
	)
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classkit_llm_requests_total",
			Help: "Total number of requests to the LLM API.",
		},
		[]string{"model", "status"},
	)
	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classkit_llm_tokens_total",
			Help: "Tokens reported by the LLM API.",
		},
		[]string{"model", "kind"}, // kind: prompt, completion
	)
	jobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classkit_generation_jobs_in_flight",
			Help: "Generation jobs currently running.",
		},
	)
)
