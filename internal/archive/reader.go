package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrEntryTooLarge is returned when an entry decompresses past the limit.
var ErrEntryTooLarge = errors.New("entry exceeds maximum size")

// DefaultMaxEntrySize bounds a single decompressed entry.
const DefaultMaxEntrySize int64 = 100 << 20

// Entry is one non-directory file inside an archive.
type Entry struct {
	// Index is the position among non-directory entries, starting at 0.
	Index    int
	Path     string
	Size     int64
	Modified time.Time

	file    *zip.File
	maxSize int64
}

// Reader iterates over the files of a zip archive held in memory.
type Reader struct {
	entries []*Entry
}

// Open parses the zip central directory in data. Entries larger than
// maxEntrySize fail on Read; a non-positive limit uses DefaultMaxEntrySize.
func Open(data []byte, maxEntrySize int64) (*Reader, error) {
	if maxEntrySize <= 0 {
		maxEntrySize = DefaultMaxEntrySize
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip archive: %w", err)
	}

	entries := make([]*Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, &Entry{
			Index:    len(entries),
			Path:     f.Name,
			Size:     int64(f.UncompressedSize64),
			Modified: f.Modified,
			file:     f,
			maxSize:  maxEntrySize,
		})
	}

	return &Reader{entries: entries}, nil
}

// Entries returns the non-directory entries in archive order.
func (r *Reader) Entries() []*Entry {
	return r.entries
}

// Len returns the number of non-directory entries.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Read decompresses the entry.
func (e *Entry) Read() ([]byte, error) {
	if e.Size > e.maxSize {
		return nil, fmt.Errorf("%s: %w (%d > %d bytes)", e.Path, ErrEntryTooLarge, e.Size, e.maxSize)
	}

	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", e.Path, err)
	}
	defer rc.Close()

	// The header size can lie; read one byte past the limit to detect it.
	data, err := io.ReadAll(io.LimitReader(rc, e.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", e.Path, err)
	}
	if int64(len(data)) > e.maxSize {
		return nil, fmt.Errorf("%s: %w", e.Path, ErrEntryTooLarge)
	}
	return data, nil
}
