package recovery

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// noiseBytes never contains a byte that starts a known image signature.
func noiseBytes(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Intn(0x40))
	}
	return out
}

func zeroPrefixed(prefix int, data []byte) []byte {
	return append(make([]byte, prefix), data...)
}

type zipEntry struct {
	name string
	data []byte
}

func zipBytes(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: time.Date(2023, 8, 14, 9, 30, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("zip create %s: %v", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("zip write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func newTestRegistry(t *testing.T, mutate ...func(*Options)) *Registry {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		ExtractDir:    filepath.Join(root, "extracted"),
		ThumbnailDir:  filepath.Join(root, "thumbnails"),
		MaxConcurrent: 2,
		CacheSize:     16,
		CacheTTL:      time.Minute,
	}
	for _, m := range mutate {
		m(&opts)
	}

	r, err := NewRegistry(opts)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = r.Close(ctx)
	})
	return r
}

func startAndWait(t *testing.T, r *Registry, name string, data []byte) *Session {
	t.Helper()
	id, err := r.Start(name, data)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := r.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return s
}

func assertCounterInvariant(t *testing.T, s *Session) {
	t.Helper()
	if s.RecoveredCount+s.CorruptedCount != s.ImagesFound {
		t.Errorf("recovered(%d) + corrupted(%d) != imagesFound(%d)",
			s.RecoveredCount, s.CorruptedCount, s.ImagesFound)
	}
	if s.ImagesFound > s.TotalEntries {
		t.Errorf("imagesFound(%d) > totalEntries(%d)", s.ImagesFound, s.TotalEntries)
	}
	for _, e := range s.Entries {
		hasThumb := e.ThumbnailRef != ""
		eligible := (e.RecoveryStatus == EntryIntact || e.RecoveryStatus == EntryRecovered) && e.Metadata != nil
		if hasThumb && !eligible {
			t.Errorf("entry %s has thumbnail but status %s", e.Name, e.RecoveryStatus)
		}
	}
}

// withPNGDimensions rewrites the IHDR of a PNG to declare w x h while the
// pixel data stays as encoded.
func withPNGDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	if len(data) < 33 || string(data[12:16]) != "IHDR" {
		t.Fatal("fixture is not a PNG with a leading IHDR chunk")
	}
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}
