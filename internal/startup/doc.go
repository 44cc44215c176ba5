// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// A dotenv file (ENV_FILE, default .env) is applied first when present;
// variables already exported in the environment take precedence over it.
//
//   - DATA_DIR: Root for extracted photos and thumbnails (default: /data)
//   - DATABASE_DIR: Path to the session database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - MAX_UPLOAD_SIZE: Largest accepted archive in bytes (default: 512 MiB)
//   - MAX_ENTRY_SIZE: Largest single archive entry in bytes (default: 100 MiB)
//   - MAX_CONCURRENT_SESSIONS: Sessions processed at once (default: derived from GOMAXPROCS)
//   - OFFSET_SCAN_LIMIT, OFFSET_SCAN_STEP, OFFSET_SCAN_MIN_SIZE: Repair scan tuning
//   - THUMBNAIL_SIZE, THUMBNAIL_QUALITY: Thumbnail box edge and JPEG quality
//   - THUMBNAIL_CACHE_SIZE, THUMBNAIL_CACHE_TTL: In-memory thumbnail cache
//   - PERSIST_SESSIONS: Keep finished sessions in SQLite (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Invalid numeric values are logged and replaced by their defaults.
//
// # Directory Setup
//
// The extracted and thumbnails directories under DATA_DIR are required and
// must be writable. The database directory is optional; if it cannot be
// created or written, persistence is disabled.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
