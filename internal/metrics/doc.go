// Package metrics provides Prometheus instrumentation for the photo
// recovery service.
//
// All metrics are prefixed with "photo_recovery_" and registered on the
// default registry via promauto, so importing the package is enough to
// expose them on /metrics.
//
// # Metric Categories
//
//   - HTTP: request totals, duration, in-flight requests, upload sizes
//   - Sessions: started, finished by status, active, waiting for a slot,
//     end-to-end duration
//   - Entries: processed entries by outcome and detected format, sizes
//   - Repair: attempts by strategy and result, repair duration
//   - Thumbnails: renders by backend and status, render duration, cache
//     hit/miss counters
//   - Packaging: download archive build time and size
//   - Storage: SQLite query totals and durations, filesystem retries
//   - Inventory: retained sessions by status, stored photos and bytes on
//     disk, refreshed by a [Collector] from a [StatsProvider]
//
// Call InitializeMetrics once at startup so every labelled series is
// present before the first event.
package metrics
