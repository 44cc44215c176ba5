package recovery

import (
	"time"

	"photo-recovery/internal/archive"
	"photo-recovery/internal/media"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// EntryStatus is the outcome for one image entry.
type EntryStatus string

const (
	EntryIntact    EntryStatus = "intact"
	EntryRecovered EntryStatus = "recovered"
	EntryCorrupted EntryStatus = "corrupted"
	EntryFailed    EntryStatus = "failed"
)

// PhotoMetadata describes a decodable image.
type PhotoMetadata struct {
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Format       string    `json:"format"`
	LastModified time.Time `json:"lastModified"`
}

// PhotoFile is one image entry found in the archive.
type PhotoFile struct {
	Name                string         `json:"name"`
	SizeBytes           int64          `json:"sizeBytes"`
	DetectedFormat      media.Format   `json:"detectedFormat"`
	Corrupted           bool           `json:"corrupted"`
	Metadata            *PhotoMetadata `json:"metadata,omitempty"`
	ThumbnailRef        string         `json:"thumbnailRef,omitempty"`
	RecoveryStatus      EntryStatus    `json:"recoveryStatus"`
	OriginalArchivePath string         `json:"originalArchivePath"`
	RepairStrategy      string         `json:"repairStrategy,omitempty"`
	RepairOffset        int            `json:"repairOffset,omitempty"`
	Checksum            string         `json:"checksum,omitempty"`
}

// Session is a snapshot of one recovery run.
type Session struct {
	ID               string      `json:"id"`
	SourceName       string      `json:"sourceName"`
	TotalEntries     int         `json:"totalEntries"`
	ProcessedEntries int         `json:"processedEntries"`
	ImagesFound      int         `json:"imagesFound"`
	RecoveredCount   int         `json:"recoveredCount"`
	CorruptedCount   int         `json:"corruptedCount"`
	Status           Status      `json:"status"`
	StartedAt        time.Time   `json:"startedAt"`
	EndedAt          *time.Time  `json:"endedAt,omitempty"`
	Entries          []PhotoFile `json:"entries"`
	Log              []string    `json:"log"`
}

// clone returns a deep copy safe to hand to callers.
func (s *Session) clone() *Session {
	c := *s
	if s.EndedAt != nil {
		ended := *s.EndedAt
		c.EndedAt = &ended
	}
	c.Entries = make([]PhotoFile, len(s.Entries))
	for i, e := range s.Entries {
		if e.Metadata != nil {
			meta := *e.Metadata
			e.Metadata = &meta
		}
		c.Entries[i] = e
	}
	c.Log = append([]string(nil), s.Log...)
	return &c
}

// findEntry returns the entry stored under name.
func (s *Session) findEntry(name string) (*PhotoFile, bool) {
	for i := range s.Entries {
		if s.Entries[i].Name == name {
			return &s.Entries[i], true
		}
	}
	return nil, false
}

// resolveEntry maps a caller-supplied name to an entry. The stored name
// wins, then the exact archive path, and only then the sanitized form of
// name. A renamed duplicate is therefore reachable by its archive path and
// never resolves to the entry that kept the plain name.
func (s *Session) resolveEntry(name string) (*PhotoFile, bool) {
	if e, ok := s.findEntry(name); ok {
		return e, true
	}
	for i := range s.Entries {
		if s.Entries[i].OriginalArchivePath == name {
			return &s.Entries[i], true
		}
	}
	return s.findEntry(archive.Sanitize(name))
}
