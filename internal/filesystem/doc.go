/*
Package filesystem provides file reads and writes that retry on NFS stale
file handle errors.

Recovered images, thumbnails and the session database usually live on a
mounted volume. When that volume is NFS, a write can fail with ESTALE while
the server re-exports; these helpers retry such failures with exponential
backoff and fail immediately on any other error.

# Usage

	if err := filesystem.WriteFileWithRetry(path, data, 0o644); err != nil {
	    return err
	}

	data, err := filesystem.ReadFileWithRetry(path)

Custom retry configuration:

	config := filesystem.RetryConfig{
	    MaxRetries:     5,
	    InitialBackoff: 100 * time.Millisecond,
	    MaxBackoff:     1 * time.Second,
	}
	err := filesystem.WriteFile(path, data, 0o644, config)

# Retry Behavior

Defaults are 3 retries, 50ms initial backoff and 500ms maximum backoff.
Retries and exhausted retries are counted in the
photo_recovery_filesystem_retry_* metrics.
*/
package filesystem
