package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metadata store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_db_queries_total",
			Help: "Total number of metadata store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gallery_db_query_duration_seconds",
			Help:    "Metadata store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_db_connections_open",
			Help: "Number of open metadata store connections",
		},
	)
)

// Blob store metrics
var (
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_blob_operations_total",
			Help: "Total number of blob store operations",
		},
		[]string{"operation", "status"},
	)

	BlobOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gallery_blob_operation_duration_seconds",
			Help:    "Blob store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	BlobRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_blob_retry_attempts_total",
			Help: "Total number of blob store retry attempts on stale file handles",
		},
		[]string{"operation"},
	)

	BlobStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_blob_stale_errors_total",
			Help: "Total number of NFS stale file handle errors seen by the blob store",
		},
		[]string{"operation"},
	)
)

// Ingest metrics
var (
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_ingest_total",
			Help: "Total number of ingest attempts by outcome",
		},
		[]string{"outcome"}, // "success", "fallback", "rollback", "failed"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_gallery_ingest_duration_seconds",
			Help:    "End-to-end ingest duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_ingest_bytes_total",
			Help: "Total number of media bytes ingested",
		},
	)

	CompensatingDeleteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_compensating_delete_failures_total",
			Help: "Compensating blob deletes that failed, leaving a residual orphan",
		},
	)
)

// Reconciliation metrics
var (
	ReconcileRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_reconcile_runs_total",
			Help: "Total number of reconciliation scans",
		},
	)

	ReconcileOrphanFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_reconcile_orphan_files",
			Help: "Orphan files found by the last reconciliation scan",
		},
	)

	ReconcileDanglingRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_reconcile_dangling_records",
			Help: "Dangling records found by the last reconciliation scan",
		},
	)

	ReconcileIntegrityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_reconcile_integrity_score",
			Help: "Integrity score (0-100) from the last reconciliation scan",
		},
	)
)

// Reclaim metrics
var (
	ReclaimRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_reclaim_runs_total",
			Help: "Total number of storage reclaim runs",
		},
	)

	ReclaimRecordsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_reclaim_records_cleaned_total",
			Help: "Records stripped of redundant inline payloads",
		},
	)

	ReclaimBytesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_reclaim_bytes_saved_total",
			Help: "Bytes reclaimed from the metadata store",
		},
	)

	ReclaimErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_reclaim_errors_total",
			Help: "Per-record reclaim failures",
		},
	)
)

// Memory pressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_memory_usage_ratio",
			Help: "Heap usage as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_gallery_memory_paused",
			Help: "1 when background work is paused due to memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gallery_memory_gc_pauses_total",
			Help: "Forced GC cycles triggered by the memory monitor",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gallery_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"encoder", "status"}, // encoder: "vips", "imaging"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// InitializeMetrics pre-populates the known label combinations so every
// metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, outcome := range []string{"success", "fallback", "rollback", "failed"} {
		IngestTotal.WithLabelValues(outcome)
	}

	blobOps := []string{"write", "delete", "list", "stat"}
	for _, op := range blobOps {
		BlobOperationsTotal.WithLabelValues(op, "success")
		BlobOperationsTotal.WithLabelValues(op, "error")
		BlobOperationDuration.WithLabelValues(op)
		BlobRetryAttempts.WithLabelValues(op)
		BlobStaleErrors.WithLabelValues(op)
	}

	for _, encoder := range []string{"vips", "imaging"} {
		ThumbnailGenerationsTotal.WithLabelValues(encoder, "success")
		ThumbnailGenerationsTotal.WithLabelValues(encoder, "error")
	}
}
