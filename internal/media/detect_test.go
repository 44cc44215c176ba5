package media

import (
	"bytes"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, FormatJPEG},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, FormatPNG},
		{"gif89a", []byte("GIF89a\x01\x00"), FormatGIF},
		{"bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), FormatBMP},
		{"tiff little endian", []byte{0x49, 0x49, 0x2A, 0x00, 8, 0, 0, 0}, FormatTIFF},
		{"tiff big endian", []byte{0x4D, 0x4D, 0x00, 0x2A, 0, 0, 0, 8}, FormatTIFF},
		{"text", []byte("hello, world"), FormatUnknown},
		{"empty", nil, FormatUnknown},
		{"truncated jpeg", []byte{0xFF, 0xD8}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}
	jpegHeader := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}
	zeros := make([]byte, 64)

	tests := []struct {
		name string
		data []byte
		file string
		want Classification
	}{
		{"jpeg by extension", jpegHeader, "photo.jpg", Classification{true, FormatJPEG}},
		{"extension is case insensitive", jpegHeader, "PHOTO.JPEG", Classification{true, FormatJPEG}},
		{"png content under dat name", pngHeader, "note.dat", Classification{true, FormatPNG}},
		{"mislabelled png with jpg extension", pngHeader, "photo.jpg", Classification{true, FormatPNG}},
		{"image extension with zeroed header", zeros, "corrupt.jpg", Classification{true, FormatUnknown}},
		{"webp extension without known signature", zeros, "pic.webp", Classification{true, FormatUnknown}},
		{"plain text", []byte("just some notes here"), "note.txt", Classification{false, FormatUnknown}},
		{"zeros without extension", zeros, "blob.bin", Classification{false, FormatUnknown}},
		{"short buffer with image extension", []byte{0xFF, 0xD8, 0xFF}, "tiny.jpg", Classification{false, FormatUnknown}},
		{"seven bytes", []byte{0x89, 0x50, 0x4E, 0x47, 0, 0, 0}, "x.png", Classification{false, FormatUnknown}},
		{"raw sensor extension", zeros, "img.cr2", Classification{false, FormatUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.data, tt.file); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.file, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x42, 0x4D, 0x10, 0x20}, 8)
	first := Classify(data, "scan.raw")
	for i := 0; i < 10; i++ {
		if got := Classify(data, "scan.raw"); got != first {
			t.Fatalf("Classify changed result on call %d: %+v vs %+v", i, got, first)
		}
	}
	if !first.IsImage || first.Format != FormatBMP {
		t.Errorf("Classify() = %+v, want bmp image", first)
	}
}

func TestIsImageExtension(t *testing.T) {
	tests := map[string]bool{
		"a.jpg":           true,
		"a.JPG":           true,
		"dir/b.png":       true,
		"c.tif":           true,
		"d.heic":          true,
		"e.txt":           false,
		"f":               false,
		"archive.jpg.zip": false,
		".hidden.gif":     true,
	}
	for name, want := range tests {
		if got := IsImageExtension(name); got != want {
			t.Errorf("IsImageExtension(%q) = %v, want %v", name, got, want)
		}
	}
}
