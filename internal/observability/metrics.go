// Package observability holds Prometheus metric definitions and helpers.
package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_engage_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_engage_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MembershipConflictRetries counts optimistic-lock conflicts on attendee
	// writes, labeled by operation (join/leave) and outcome (retried/exhausted).
	MembershipConflictRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_engage_membership_conflict_retries_total",
		Help: "Total optimistic-lock conflicts on attendee writes",
	}, []string{"operation", "outcome"})

	// AssetUploadFailures counts failed cover-image uploads by stage.
	AssetUploadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_engage_asset_upload_failures_total",
		Help: "Total failed cover image uploads by stage",
	}, []string{"stage"})

	// AssetOrphanDeletes counts best-effort asset deletions by result.
	AssetOrphanDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_engage_asset_deletes_total",
		Help: "Total stale asset deletion attempts by result",
	}, []string{"result"})

	// EventsCreated counts created events by category.
	EventsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_engage_events_created_total",
		Help: "Total events created by category",
	}, []string{"category"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

var (
	promOnce sync.Once
	promMW   *fiberprometheus.FiberPrometheus
)

// InitMetrics sets up the Prometheus HTTP middleware for the given service
// name. The middleware registers collectors on the default registry, so it is
// created once and shared by every app instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMW = fiberprometheus.New(serviceName)
	})
	return promMW
}

// MetricsMiddleware returns the Fiber handler for the prometheus middleware.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
