package courserag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courserag",
			Name:      "model_calls_total",
			Help:      "Total language model calls",
		},
		[]string{"phase", "status"}, // phase: "round", "drain"
	)

	modelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courserag",
			Name:      "model_duration_seconds",
			Help:      "Duration of language model calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"phase"},
	)

	modelTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courserag",
			Name:      "model_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"direction"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courserag",
			Name:      "tool_calls_total",
			Help:      "Total tool dispatches",
		},
		[]string{"tool", "status"},
	)

	toolRoundsCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "courserag",
			Name:      "tool_rounds_per_query",
			Help:      "Tool rounds used to answer a query",
			Buckets:   []float64{0, 1, 2},
		},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courserag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end duration of query handling in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	sessionsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courserag",
			Name:      "sessions_pruned_total",
			Help:      "Total idle sessions removed by the pruner",
		},
	)
)
