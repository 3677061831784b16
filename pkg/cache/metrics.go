package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts response cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_response_cache_hits_total",
		Help: "Total number of remote response cache hits",
	})

	// CacheMisses counts response cache misses, expired entries included.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_response_cache_misses_total",
		Help: "Total number of remote response cache misses",
	})

	// CacheErrors counts Redis or codec failures by operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_response_cache_errors_total",
			Help: "Total number of response cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
