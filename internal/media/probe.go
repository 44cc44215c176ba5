package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Decoders registered for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyBuffer is returned when probing a zero-length buffer.
var ErrEmptyBuffer = errors.New("empty image buffer")

// Metadata holds the properties read from a decodable image header.
type Metadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Probe decodes the image header in data without decoding pixels.
// Formats the Go decoders do not handle (HEIC/HEIF) fall back to libvips
// when it is available.
func Probe(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		if config.Width <= 0 || config.Height <= 0 {
			return nil, fmt.Errorf("invalid image dimensions %dx%d", config.Width, config.Height)
		}
		return &Metadata{Width: config.Width, Height: config.Height, Format: format}, nil
	}

	if IsVipsAvailable() {
		if meta, vipsErr := probeWithVips(data); vipsErr == nil {
			return meta, nil
		}
	}

	return nil, fmt.Errorf("decode image header: %w", err)
}
