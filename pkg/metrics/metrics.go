// Package metrics exposes the Prometheus registry shared by the content
// cache packages. Metrics are declared with promauto in the package that
// records them (cache, client, repository, webhook); this package documents
// them and serves the scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - content_cache_hits_total{kind} (Counter): hits by kind (story, list)
//   - content_cache_misses_total{kind} (Counter): misses by kind
//   - content_cache_bypass_total{operation} (Counter): loads/saves skipped in preview or dev mode
//   - content_cache_written_bytes_total{kind} (Counter): bytes written per kind
//   - content_cache_corrupt_entries_total (Counter): undecodable entries removed
//   - content_cache_invalidated_entries_total (Counter): entries removed by tag invalidation
//   - content_cache_errors_total{operation} (Counter): store failures (get, set, delete, invalidate)
//
// Request Metrics (pkg/client):
//   - content_api_requests_total{endpoint, status} (Counter)
//   - content_api_request_duration_seconds{endpoint} (Histogram)
//   - content_api_errors_total{class} (Counter): client, server, rate_limit, network
//
// Repository Metrics (pkg/repository):
//   - content_repository_lookups_total{operation, source} (Counter): source is cache, remote or not_found
//
// Webhook Metrics (pkg/webhook):
//   - content_webhook_deliveries_total{outcome} (Counter): accepted, ignored, failed, rejected
//
// Example Prometheus Queries:
//
//   # Cache hit rate
//   sum(rate(content_cache_hits_total[5m])) /
//   (sum(rate(content_cache_hits_total[5m])) + sum(rate(content_cache_misses_total[5m])))
//
//   # Rejected webhook deliveries
//   rate(content_webhook_deliveries_total{outcome="rejected"}[5m])
//
//   # P95 content API latency
//   histogram_quantile(0.95, rate(content_api_request_duration_seconds_bucket[5m]))
