// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_http_requests_total",
			Help: "Total HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_toggles_total",
			Help: "Relation toggles by target kind and resulting state",
		},
		[]string{"kind", "result"}, // result: "on", "off"
	)

	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_auth_events_total",
			Help: "Credential operations by outcome",
		},
		[]string{"event", "result"},
	)

	CounterDriftTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_counter_drift_total",
			Help: "Cached counters found out of line with their edge rows and repaired",
		},
		[]string{"kind"},
	)

	StatsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_stats_cache_lookups_total",
			Help: "Channel stats cache lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videotube_aggregation_duration_seconds",
			Help:    "Duration of read-side aggregation pipelines",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pipeline"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "videotube_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	QueueEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_queue_events_total",
			Help: "Relation events by stage",
		},
		[]string{"stage"}, // "published", "processed", "failed"
	)
)

func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordToggle(kind string, active bool) {
	result := "off"
	if active {
		result = "on"
	}
	TogglesTotal.WithLabelValues(kind, result).Inc()
}

func RecordAuthEvent(event string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AuthEventsTotal.WithLabelValues(event, result).Inc()
}

// ObserveAggregation is meant to be deferred: defer metrics.ObserveAggregation("comments", time.Now())
func ObserveAggregation(pipeline string, start time.Time) {
	AggregationDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}
