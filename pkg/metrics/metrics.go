// Package metrics exposes the Prometheus registry. Metrics are declared with
// promauto in the package that owns them:
//
// Remote client (pkg/fpl):
//   - fpl_requests_total{endpoint,status}
//   - fpl_request_duration_seconds{endpoint}
//   - fpl_errors_total{class}
//
// Fetch scheduler (pkg/fetch):
//   - fpl_fetch_members_total{outcome}
//   - fpl_fetch_retries_total
//   - fpl_fetch_batch_duration_seconds
//   - fpl_fetch_runs_total{result}
//
// Cache store (pkg/store):
//   - fpl_store_operations_total{op,result}
//   - fpl_store_record_bytes
//
// Response cache and error budget (pkg/cache, pkg/ratelimit) are listed
// in their package docs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is where promauto registers every metric of this module.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the read side of Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}
