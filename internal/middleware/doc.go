// Package middleware provides HTTP middleware for the photo recovery server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression for JSON bodies (gzip via klauspost/compress)
//   - Prometheus request metrics with low-cardinality path labels
package middleware
