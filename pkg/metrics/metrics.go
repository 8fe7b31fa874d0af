// Package metrics provides the Prometheus registry and HTTP handler for the
// list loader. All metrics are defined in their respective packages (client,
// pagination) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - woo_requests_total{resource, status} (Counter): Store requests by resource and HTTP status
//     (status is "network_error" or "throttled" when no response was received)
//   - woo_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - woo_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Loader Metrics (pkg/pagination):
//   - woo_loader_pages_total{resource, outcome} (Counter): Resolved page fetches (ok, failed)
//   - woo_loader_duplicates_dropped_total{resource} (Counter): Fetched items already in the list
//   - woo_loader_stale_responses_total{resource} (Counter): Responses discarded after a reset
//
// Example Prometheus Queries:
//
//   # Fetch failure ratio
//   sum(rate(woo_loader_pages_total{outcome="failed"}[5m])) /
//   sum(rate(woo_loader_pages_total[5m]))
//
//   # Store error rate by class
//   rate(woo_errors_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(woo_request_duration_seconds_bucket[5m]))
//
//   # Overlapping pages (items shifted between requests)
//   rate(woo_loader_duplicates_dropped_total[5m])
