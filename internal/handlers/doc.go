// Package handlers provides the HTTP request handlers for the photo recovery API.
//
// It includes handlers for:
//   - Uploading archives and starting recovery sessions
//   - Polling, listing, cancelling and cleaning up sessions
//   - Serving thumbnails and the recovered photos as a zip download
//   - Health, readiness and version endpoints
//
// Errors are returned as {"error": "..."} JSON with the status mapped from
// the recovery package's sentinel errors.
package handlers
