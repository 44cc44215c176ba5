// Package recovery runs photo recovery sessions over uploaded archives.
//
// A Registry owns every session. Start allocates a session directory and
// returns immediately; extraction runs in its own goroutine, bounded by a
// weighted semaphore shared by all sessions. For each archive entry the
// extractor classifies the bytes, probes image metadata, falls back to the
// repair engine when the probe fails, writes the result to disk and renders
// a thumbnail. Per-entry failures are recorded on the session and never
// stop the walk; only an unreadable archive or cancellation fails a session.
//
// Callers observe progress by polling Get or List, which return deep
// copies. Terminal sessions can be persisted through a Store and restored
// on startup.
package recovery
