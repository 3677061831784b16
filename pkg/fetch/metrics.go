package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	membersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_fetch_members_total",
		Help: "Total number of member fetches by final outcome",
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_fetch_retries_total",
		Help: "Total number of per-member retry attempts",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fpl_fetch_batch_duration_seconds",
		Help:    "Wall time of one fetch batch",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_fetch_runs_total",
		Help: "Total number of fetch runs by result",
	}, []string{"result"})
)
