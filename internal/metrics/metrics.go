package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_recovery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_upload_bytes",
			Help:    "Size of uploaded archives in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
	)
)

// Session metrics
var (
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_recovery_sessions_started_total",
			Help: "Total number of recovery sessions started",
		},
	)

	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_sessions_finished_total",
			Help: "Total number of recovery sessions that reached a terminal status",
		},
		[]string{"status"}, // "completed" or "failed"
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_recovery_sessions_active",
			Help: "Number of sessions currently extracting",
		},
	)

	SessionsWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_recovery_sessions_waiting",
			Help: "Number of sessions waiting for an extraction slot",
		},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_session_duration_seconds",
			Help:    "Wall time from session start to terminal status",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// Entry metrics
var (
	EntriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_entries_total",
			Help: "Archive entries processed, by outcome",
		},
		[]string{"outcome"}, // intact, recovered, corrupted, failed, skipped
	)

	EntryBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_entry_bytes",
			Help:    "Size of extracted archive entries in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	EntriesByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_entries_by_format_total",
			Help: "Image entries by detected format",
		},
		[]string{"format"},
	)
)

// Repair metrics
var (
	RepairAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_repair_attempts_total",
			Help: "Repair strategy attempts by strategy and result",
		},
		[]string{"strategy", "result"}, // result: "success", "miss"
	)

	RepairDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_repair_duration_seconds",
			Help:    "Time spent repairing one buffer",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"}, // "recovered", "exhausted"
	)
)

// Thumbnail metrics
var (
	ThumbnailRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_thumbnail_renders_total",
			Help: "Thumbnail renders by backend and status",
		},
		[]string{"backend", "status"}, // backend: "imaging", "vips"
	)

	ThumbnailRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_thumbnail_render_duration_seconds",
			Help:    "Thumbnail render duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_recovery_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_recovery_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)
)

// Packaging metrics
var (
	PackageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_package_duration_seconds",
			Help:    "Time to bundle a session directory into a zip archive",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	PackageBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_package_bytes",
			Help:    "Size of produced download archives in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
	)
)

// Storage metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_recovery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale NFS handle",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_recovery_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)
)

// Inventory metrics, refreshed by the Collector
var (
	SessionsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_recovery_sessions_tracked",
			Help: "Sessions held by the registry, by status",
		},
		[]string{"status"}, // "processing", "completed", "failed"
	)

	PhotosStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_recovery_photos_stored",
			Help: "Recovered photos across all retained sessions",
		},
	)

	StorageBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_recovery_storage_bytes",
			Help: "Bytes on disk held by retained sessions",
		},
		[]string{"area"}, // "extracted", "thumbnails"
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_recovery_memory_usage_ratio",
			Help: "Heap in use as a ratio of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_recovery_memory_paused",
			Help: "1 while extraction is paused for memory pressure",
		},
	)

	MemoryPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_recovery_memory_pauses_total",
			Help: "Times extraction was paused for memory pressure",
		},
	)
)
