package media

import (
	"errors"
	"testing"
)

func TestProbe(t *testing.T) {
	tests := []struct {
		format string
		width  int
		height int
	}{
		{"jpeg", 80, 60},
		{"png", 40, 30},
		{"gif", 16, 16},
		{"bmp", 33, 7},
		{"tiff", 12, 48},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data := encodeImage(t, tt.format, tt.width, tt.height)

			meta, err := Probe(data)
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if meta.Width != tt.width || meta.Height != tt.height {
				t.Errorf("Probe() = %dx%d, want %dx%d", meta.Width, meta.Height, tt.width, tt.height)
			}
			if meta.Format != tt.format {
				t.Errorf("Probe() format = %q, want %q", meta.Format, tt.format)
			}
		})
	}
}

func TestProbeMatchesDetectedFormat(t *testing.T) {
	for _, format := range []string{"jpeg", "png", "gif", "bmp", "tiff"} {
		data := encodeImage(t, format, 10, 10)
		if got := DetectFormat(data); string(got) != format {
			t.Errorf("DetectFormat(%s fixture) = %q", format, got)
		}
	}
}

func TestProbeRejectsInvalidData(t *testing.T) {
	valid := encodeImage(t, "jpeg", 20, 20)
	shifted := append(make([]byte, 50), valid...)

	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("this is not an image at all")},
		{"zero prefix before jpeg", shifted},
		{"signature only", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if meta, err := Probe(tt.data); err == nil {
				t.Errorf("Probe() = %+v, want error", meta)
			}
		})
	}
}

func TestProbeEmpty(t *testing.T) {
	if _, err := Probe(nil); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("Probe(nil) error = %v, want ErrEmptyBuffer", err)
	}
}
