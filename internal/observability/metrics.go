package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inmomarket_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PublicationsWritten counts successful publication writes by operation.
	PublicationsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inmomarket_publications_written_total",
		Help: "Total number of publications created or updated",
	}, []string{"operation"})

	// FavoriteToggles counts favorite toggles by outcome (added, removed).
	FavoriteToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inmomarket_favorite_toggles_total",
		Help: "Total number of favorite toggles by outcome",
	}, []string{"result"})

	// ReportsCreated counts submitted reports.
	ReportsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inmomarket_reports_created_total",
		Help: "Total number of reports submitted",
	})

	// ReportResolutions counts admin decisions by resulting status.
	ReportResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inmomarket_report_resolutions_total",
		Help: "Total number of resolved reports by status",
	}, []string{"status"})

	// ImagesStored counts images pushed to the image store by backend.
	ImagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inmomarket_images_stored_total",
		Help: "Total number of images written to the image store",
	}, []string{"backend"})

	// ImageStoreErrors counts image store failures by backend and operation.
	ImageStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inmomarket_image_store_errors_total",
		Help: "Total number of image store failures",
	}, []string{"backend", "operation"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inmomarket_cache_lookups_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
