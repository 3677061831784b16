package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_store_operations_total",
		Help: "Total number of cache store operations by operation and result",
	}, []string{"op", "result"})

	recordBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fpl_store_record_bytes",
		Help:    "Compressed size of saved roster payloads",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)
