package recovery

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"photo-recovery/internal/archive"
	"photo-recovery/internal/filesystem"
	"photo-recovery/internal/logging"
	"photo-recovery/internal/media"
	"photo-recovery/internal/metrics"
	"photo-recovery/internal/repair"

	"golang.org/x/crypto/blake2b"
)

// extractor walks one archive and is the only writer of its session.
type extractor struct {
	id           string
	state        *sessionState
	engine       *repair.Engine
	thumbs       *media.ThumbnailGenerator
	maxEntrySize int64
	throttle     Throttle

	names         *archive.NameAllocator
	writeAttempts int
	writeFailures int
}

// logf appends a line to the session log and mirrors it to the debug log.
func (x *extractor) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	x.state.update(func(s *Session) {
		s.Log = append(s.Log, line)
	})
	logging.Debug("[%s] %s", x.id, line)
}

// finish moves the session to a terminal status exactly once.
func (x *extractor) finish(status Status, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	x.state.update(func(s *Session) {
		if s.Status.Terminal() {
			return
		}
		now := time.Now().UTC()
		s.Status = status
		s.EndedAt = &now
		s.Log = append(s.Log, line)
	})
	logging.Debug("[%s] %s", x.id, line)
}

func (x *extractor) run(ctx context.Context, data []byte) {
	reader, err := archive.Open(data, x.maxEntrySize)
	if err != nil {
		cerr := &ContainerError{Err: err}
		logging.Warn("Recovery session %s: %v", x.id, cerr)
		x.finish(StatusFailed, "Extraction failed: %v", err)
		return
	}

	x.state.update(func(s *Session) {
		s.TotalEntries = reader.Len()
	})
	x.logf("Found %d files in archive", reader.Len())

	x.names = archive.NewNameAllocator()
	for _, entry := range reader.Entries() {
		if err := x.waitForMemory(ctx); err != nil {
			x.finish(StatusFailed, "Recovery cancelled")
			return
		}

		x.processEntry(entry)
		x.state.update(func(s *Session) {
			s.ProcessedEntries++
		})
	}

	if x.writeAttempts > 0 && x.writeFailures == x.writeAttempts {
		x.finish(StatusFailed, "Extraction failed: no recovered file could be written")
		return
	}

	snap := x.state.snapshot()
	x.finish(StatusCompleted, "Recovery completed. Found %d photos, recovered %d",
		snap.ImagesFound, snap.RecoveredCount)
}

// waitForMemory returns once the next entry may be decoded, or the
// context's error if the session was cancelled first.
func (x *extractor) waitForMemory(ctx context.Context) error {
	if x.throttle == nil {
		return ctx.Err()
	}
	return x.throttle.Wait(ctx)
}

// processEntry handles one archive entry. Every failure is recorded on the
// session; nothing here can fail the session.
func (x *extractor) processEntry(entry *archive.Entry) {
	data, err := entry.Read()
	if err != nil {
		x.recordReadFailure(entry, &EntryError{Kind: EntryExtraction, Path: entry.Path, Err: err})
		return
	}

	cls := media.Classify(data, entry.Path)
	if !cls.IsImage {
		if media.IsImageExtension(entry.Path) {
			x.logf("Skipped %s: too short to be an image (%d bytes)", entry.Path, len(data))
			metrics.EntriesProcessed.WithLabelValues("skipped").Inc()
			return
		}
		logging.Debug("[%s] skipping non-image entry %s", x.id, entry.Path)
		metrics.EntriesProcessed.WithLabelValues("skipped").Inc()
		return
	}

	out := data
	meta, probeErr := media.Probe(data)
	var repaired *repair.Result
	if probeErr != nil {
		logging.Debug("[%s] %v", x.id, &EntryError{Kind: MetadataProbe, Path: entry.Path, Err: probeErr})
		repaired, err = x.engine.Repair(data)
		if err == nil {
			out = repaired.Data
			meta = repaired.Metadata
		}
	}

	// A name alone is enough to count an entry; content-sniffed entries
	// must also decode before they count as photos.
	if !media.IsImageExtension(entry.Path) && meta == nil {
		logging.Debug("[%s] skipping %s: matched %s signature but does not decode", x.id, entry.Path, cls.Format)
		metrics.EntriesProcessed.WithLabelValues("skipped").Inc()
		return
	}

	metrics.EntryBytes.Observe(float64(len(data)))
	metrics.EntriesByFormat.WithLabelValues(string(cls.Format)).Inc()

	photo := PhotoFile{
		Name:                x.names.Allocate(entry.Path, entry.Index),
		SizeBytes:           int64(len(data)),
		DetectedFormat:      cls.Format,
		OriginalArchivePath: entry.Path,
	}
	x.state.update(func(s *Session) {
		s.ImagesFound++
	})

	workPath := filepath.Join(x.state.workDir, photo.Name)
	x.writeAttempts++
	if err := filesystem.WriteFileWithRetry(workPath, out, 0o644); err != nil {
		x.writeFailures++
		werr := &EntryError{Kind: FilesystemWrite, Path: entry.Path, Err: err}
		logging.Warn("[%s] %v", x.id, werr)
		photo.Corrupted = true
		photo.RecoveryStatus = EntryFailed
		x.record(photo, "failed", "Failed to save %s: %v", photo.Name, err)
		return
	}
	photo.Checksum = checksum(out)

	if meta == nil {
		photo.Corrupted = true
		photo.RecoveryStatus = EntryCorrupted
		x.record(photo, "corrupted", "Image corrupted and unrecoverable: %s", photo.Name)
		return
	}

	photo.Metadata = &PhotoMetadata{
		Width:        meta.Width,
		Height:       meta.Height,
		Format:       meta.Format,
		LastModified: entry.Modified,
	}
	if photo.Metadata.LastModified.IsZero() {
		photo.Metadata.LastModified = time.Now().UTC()
	}

	if ref, err := x.thumbs.Save(x.state.thumbDir, photo.Name, out); err != nil {
		terr := &EntryError{Kind: ThumbnailRender, Path: entry.Path, Err: err}
		logging.Warn("[%s] %v", x.id, terr)
		x.logf("Thumbnail generation failed for %s: %v", photo.Name, err)
	} else {
		photo.ThumbnailRef = ref
	}

	if repaired == nil {
		photo.RecoveryStatus = EntryIntact
		x.record(photo, "intact", "Successfully recovered: %s (%dx%d)", photo.Name, meta.Width, meta.Height)
		return
	}

	photo.RecoveryStatus = EntryRecovered
	photo.RepairStrategy = string(repaired.Strategy)
	photo.RepairOffset = repaired.Offset
	x.record(photo, "recovered", "Recovered corrupted image: %s (%s at offset %d, %dx%d)",
		photo.Name, repaired.Strategy, repaired.Offset, meta.Width, meta.Height)
}

// record appends the entry, updates the counters for its status and logs
// the outcome.
func (x *extractor) record(photo PhotoFile, outcome string, format string, args ...interface{}) {
	x.state.update(func(s *Session) {
		s.Entries = append(s.Entries, photo)
		switch photo.RecoveryStatus {
		case EntryIntact, EntryRecovered:
			s.RecoveredCount++
		default:
			s.CorruptedCount++
		}
	})
	metrics.EntriesProcessed.WithLabelValues(outcome).Inc()
	x.logf(format, args...)
}

// recordReadFailure handles entries whose bytes could not be extracted.
// Only entries named like images count toward the session's photos.
func (x *extractor) recordReadFailure(entry *archive.Entry, err *EntryError) {
	logging.Warn("[%s] %v", x.id, err)
	if !media.IsImageExtension(entry.Path) {
		x.logf("Failed to process %s: %v", entry.Path, err.Err)
		metrics.EntriesProcessed.WithLabelValues("skipped").Inc()
		return
	}

	x.state.update(func(s *Session) {
		s.ImagesFound++
	})
	photo := PhotoFile{
		Name:                x.names.Allocate(entry.Path, entry.Index),
		SizeBytes:           entry.Size,
		DetectedFormat:      media.FormatUnknown,
		Corrupted:           true,
		RecoveryStatus:      EntryCorrupted,
		OriginalArchivePath: entry.Path,
	}
	if errors.Is(err, archive.ErrEntryTooLarge) {
		x.record(photo, "corrupted", "Failed to extract %s: entry too large", entry.Path)
		return
	}
	x.record(photo, "corrupted", "Failed to extract %s: %v", entry.Path, err.Err)
}

func checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
