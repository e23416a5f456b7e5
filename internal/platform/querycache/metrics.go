package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	hitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_hits_total",
			Help: "Cache reads served from a fresh entry.",
		},
		[]string{"resource"},
	)

	missesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_misses_total",
			Help: "Cache reads that required a fetch (miss or stale entry).",
		},
		[]string{"resource"},
	)

	dedupJoinsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querycache_dedup_joins_total",
			Help: "Reads that joined an in-flight fetch for the same key.",
		},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_invalidations_total",
			Help: "Keys marked stale or removed after mutations.",
		},
		[]string{"resource", "kind"},
	)

	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querycache_evictions_total",
			Help: "Entries evicted by the idle sweeper.",
		},
	)
)

// RegisterMetrics registers the cache collectors. Called once from main.
func RegisterMetrics() {
	prometheus.MustRegister(
		hitsTotal,
		missesTotal,
		dedupJoinsTotal,
		invalidationsTotal,
		evictionsTotal,
	)
}
