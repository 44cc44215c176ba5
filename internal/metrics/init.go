package metrics

// Label values used across the service. Keeping them here lets
// InitializeMetrics export every series from the first scrape.
var (
	EntryOutcomes    = []string{"intact", "recovered", "corrupted", "failed", "skipped"}
	RepairStrategies = []string{"offset_scan", "jpeg_boundary", "png_signature"}
	ImageFormats     = []string{"jpeg", "png", "gif", "bmp", "tiff", "unknown"}
)

// InitializeMetrics pre-populates all expected label combinations.
// Call this once at startup.
func InitializeMetrics() {
	for _, status := range []string{"completed", "failed"} {
		SessionsFinished.WithLabelValues(status)
	}

	for _, outcome := range EntryOutcomes {
		EntriesProcessed.WithLabelValues(outcome)
	}

	for _, format := range ImageFormats {
		EntriesByFormat.WithLabelValues(format)
	}

	for _, strategy := range RepairStrategies {
		RepairAttempts.WithLabelValues(strategy, "success")
		RepairAttempts.WithLabelValues(strategy, "miss")
	}
	RepairDuration.WithLabelValues("recovered")
	RepairDuration.WithLabelValues("exhausted")

	for _, backend := range []string{"imaging", "vips"} {
		ThumbnailRenders.WithLabelValues(backend, "success")
		ThumbnailRenders.WithLabelValues(backend, "error")
		ThumbnailRenderDuration.WithLabelValues(backend)
	}

	for _, op := range []string{"save_session", "load_sessions", "delete_session"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"write", "read"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}
