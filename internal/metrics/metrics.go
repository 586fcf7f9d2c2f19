// Package metrics defines the Prometheus collectors exposed at /metrics.
// All collectors register with the default registry at init time.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodgram_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Domain
	RecipesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipes_written_total",
			Help: "Recipes created, updated or deleted",
		},
		[]string{"op"}, // create, update, delete
	)

	RelationChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_relation_changes_total",
			Help: "Favorite and shopping cart additions and removals",
		},
		[]string{"kind", "op"}, // kind: favorite|cart, op: add|remove
	)

	ShortLinksAllocated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_short_links_allocated_total",
			Help: "Short link codes newly assigned to recipes",
		},
	)

	ShortLinkCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_short_link_collisions_total",
			Help: "Generated short link codes rejected because they were already taken",
		},
	)

	ShortLinkExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_short_link_exhausted_total",
			Help: "Allocations that gave up after the maximum number of attempts",
		},
	)

	ShoppingListsRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_lists_rendered_total",
			Help: "Shopping lists downloaded",
		},
	)
)

// RecordHTTPRequest records one completed request. route must be the
// matched route pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
