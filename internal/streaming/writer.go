package streaming

import (
	"errors"
	"net/http"
	"os"
	"time"

	"photo-recovery/internal/logging"
)

// ErrWriteTimeout indicates that the client stopped reading for longer than
// the configured write timeout, or the stream ran past its maximum duration.
var ErrWriteTimeout = errors.New("write timeout exceeded")

// Config configures a Writer.
type Config struct {
	// WriteTimeout bounds each individual write to the client.
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited)
	MaxDuration time.Duration
	// FlushEvery flushes the response after this many bytes (0 = never).
	FlushEvery int64
}

// DefaultConfig returns sensible defaults for zip downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		MaxDuration:  0,
		FlushEvery:   1 << 20,
	}
}

// Writer streams a large response with a rolling per-write deadline. The
// server runs without a global WriteTimeout so downloads of any size can
// finish; this keeps a stalled client from pinning the handler forever.
type Writer struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	config Config

	startTime    time.Time
	bytesWritten int64
	sinceFlush   int64
	noDeadline   bool
}

// NewWriter wraps w.
func NewWriter(w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		w:         w,
		rc:        http.NewResponseController(w),
		config:    config,
		startTime: time.Now(),
	}
}

// Write implements io.Writer.
func (sw *Writer) Write(p []byte) (int, error) {
	if sw.config.MaxDuration > 0 && time.Since(sw.startTime) > sw.config.MaxDuration {
		return 0, ErrWriteTimeout
	}

	if sw.config.WriteTimeout > 0 && !sw.noDeadline {
		err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout))
		if errors.Is(err, http.ErrNotSupported) {
			sw.noDeadline = true
		} else if err != nil {
			return 0, err
		}
	}

	n, err := sw.w.Write(p)
	sw.bytesWritten += int64(n)
	sw.sinceFlush += int64(n)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, ErrWriteTimeout
		}
		return n, err
	}

	if sw.config.FlushEvery > 0 && sw.sinceFlush >= sw.config.FlushEvery {
		sw.sinceFlush = 0
		if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return n, err
		}
	}
	return n, nil
}

// Written returns the number of bytes delivered so far.
func (sw *Writer) Written() int64 {
	return sw.bytesWritten
}

// Finish clears the write deadline and logs the transfer.
func (sw *Writer) Finish() {
	if !sw.noDeadline && sw.config.WriteTimeout > 0 {
		if err := sw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logging.Debug("Failed to clear write deadline: %v", err)
		}
	}
	logging.Debug("Stream completed: %d bytes in %v", sw.bytesWritten, time.Since(sw.startTime))
}
