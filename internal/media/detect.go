package media

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format is the image format recognised from a buffer's leading bytes.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatUnknown Format = "unknown"
)

// MinClassifyLength is the shortest buffer Classify will consider an image.
const MinClassifyLength = 8

// imageExtensions lists file extensions treated as images before any
// content inspection. RAW sensor formats are intentionally absent.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".tif": true, ".webp": true,
	".heic": true, ".heif": true,
}

// signature matches a byte pattern at a fixed offset.
type signature struct {
	Offset int
	Magic  []byte
	Format Format
}

// Longer patterns of the same family first.
var signatureTable = []signature{
	{Offset: 0, Magic: []byte{0x89, 0x50, 0x4E, 0x47}, Format: FormatPNG},
	{Offset: 0, Magic: []byte{0xFF, 0xD8, 0xFF}, Format: FormatJPEG},
	{Offset: 0, Magic: []byte{0x47, 0x49, 0x46}, Format: FormatGIF},
	// TIFF little-endian ("II*\0") and big-endian ("MM\0*").
	{Offset: 0, Magic: []byte{0x49, 0x49, 0x2A, 0x00}, Format: FormatTIFF},
	{Offset: 0, Magic: []byte{0x4D, 0x4D, 0x00, 0x2A}, Format: FormatTIFF},
	{Offset: 0, Magic: []byte{0x42, 0x4D}, Format: FormatBMP},
}

// Classification is the result of Classify.
type Classification struct {
	IsImage bool
	Format  Format
}

// IsImageExtension reports whether name carries a known image extension.
func IsImageExtension(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// DetectFormat matches the start of data against the signature table.
func DetectFormat(data []byte) Format {
	for _, sig := range signatureTable {
		end := sig.Offset + len(sig.Magic)
		if len(data) < end {
			continue
		}
		if bytes.Equal(data[sig.Offset:end], sig.Magic) {
			return sig.Format
		}
	}
	return FormatUnknown
}

// Classify decides whether an archive entry is an image.
//
// A recognised extension marks the entry as an image regardless of its
// bytes; the reported format still comes from the content. Otherwise the
// entry is an image only when its leading bytes match a known signature.
// Buffers shorter than MinClassifyLength are never images.
func Classify(data []byte, name string) Classification {
	if len(data) < MinClassifyLength {
		return Classification{IsImage: false, Format: FormatUnknown}
	}

	format := DetectFormat(data)
	if IsImageExtension(name) {
		return Classification{IsImage: true, Format: format}
	}

	return Classification{IsImage: format != FormatUnknown, Format: format}
}
