// Package memory keeps the recovery service inside its container memory
// limit.
//
// Every session holds its whole uploaded archive in memory, and decoding a
// photo for probing or thumbnailing can briefly need width*height*4 bytes
// more. Go does not derive GOMEMLIMIT from the cgroup limit by itself, so
// [ConfigureFromEnv] sets it from MEMORY_LIMIT (Kubernetes Downward API)
// scaled by MEMORY_RATIO, leaving headroom for libvips allocations made
// outside the Go heap.
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go variable; when set it wins and nothing else
//     is configured.
//   - MEMORY_LIMIT: Container memory limit in bytes.
//   - MEMORY_RATIO: Share of MEMORY_LIMIT given to the Go heap, 0.0-1.0
//     (default 0.85).
//
// # Backpressure
//
// A [Monitor] samples heap usage against the limit. Above the critical
// water mark it pauses; the recovery extractor calls [Monitor.Wait] before
// each entry, so sessions stall between entries instead of pushing the
// process into the OOM killer. Processing resumes once usage drops below
// the high water mark.
package memory
