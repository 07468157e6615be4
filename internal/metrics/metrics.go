// Package metrics holds the Prometheus collectors shared by the server and
// the worker. Collectors register on the default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifedash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifedash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifedash_aggregation_duration_seconds",
			Help:    "Duration of dashboard aggregations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"aggregation", "outcome"},
	)

	EntriesLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifedash_habit_entries_logged_total",
			Help: "Habit entries written",
		},
		[]string{"completed"},
	)

	ExportsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifedash_exports_processed_total",
			Help: "Export messages handled by the worker",
		},
		[]string{"status"}, // success, duplicate, failed, invalid
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifedash_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveAggregation records the time since start. Use with defer and a
// pointer to the named error result.
func ObserveAggregation(name string, start time.Time, err *error) {
	outcome := "ok"
	if err != nil && *err != nil {
		outcome = "error"
	}
	AggregationDuration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
}

func RecordEntryLogged(completed bool) {
	EntriesLogged.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

func RecordExport(status string) {
	ExportsProcessed.WithLabelValues(status).Inc()
}

func RecordRateLimited() {
	RateLimited.Inc()
}
