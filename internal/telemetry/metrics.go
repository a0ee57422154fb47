// Package telemetry provides application-level observability.
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<SWO_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is scraped by Prometheus and is NOT served
// by the Gin router, so it is never exposed through the public API surface.
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/services)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Domain counters incremented by the API handlers.
//
// Example PromQL queries:
//   - New orgs per day:     increase(organizations_created_total[24h])
//   - Service growth rate:  rate(services_created_total[1h])
//   - Failed callbacks:     increase(auth_logins_total{result="failure"}[1h])
var (
	OrganizationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "organizations_created_total",
			Help: "Total number of organizations created.",
		},
	)

	ServicesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "services_created_total",
			Help: "Total number of monitored services registered.",
		},
	)

	AuthLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of completed OIDC login callbacks, by result.",
		},
		[]string{"result"},
	)
)

// OrphanOrganizationsSweptTotal counts organizations removed by the background
// sweeper because no profile referenced them. A steadily climbing counter
// means the compensating delete in the signup path is being skipped, which is
// worth investigating.
var OrphanOrganizationsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "orphan_organizations_swept_total",
		Help: "Total number of orphaned organizations removed by the background sweeper.",
	},
)

// OrganizationsTotal reports how many organizations currently exist. It is
// sampled by the background sweeper after each sweep rather than per-request,
// so the reading can lag by up to one sweep interval.
var OrganizationsTotal = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "organizations_total",
		Help: "Current number of organizations.",
	},
)

// DBOpenConnections tracks the number of open connections currently held by
// the connection pool. It is sampled every 30 seconds by StartDBStatsCollector
// rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits when the database becomes unreachable, which happens
// automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sqlx.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
