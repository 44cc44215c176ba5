// Package main provides the entry point for the photo recovery server.
//
// The server accepts zip archives of photos over HTTP, extracts and
// classifies every entry, repairs damaged JPEG and PNG data where it can,
// renders thumbnails and offers the recovered photos back as a zip.
//
// # Application Lifecycle
//
//  1. Configuration Loading: optional .env file, environment variables,
//     directory checks (see package startup)
//  2. Imaging: libvips is started if present; pure Go decoders always work
//  3. Persistence: the SQLite session store is opened and finished sessions
//     from earlier runs are restored
//  4. HTTP Server Setup: routes, W3C access logging, request metrics and
//     gzip for JSON responses; Prometheus is served on its own port
//  5. Graceful Shutdown: on SIGINT/SIGTERM the API stops accepting work,
//     running sessions are cancelled and the database is closed
//
// # Background Services
//
//   - Recovery sessions, bounded by MAX_CONCURRENT_SESSIONS
//   - Metrics Collector: refreshes inventory gauges every minute
package main
