package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"time"

	"photo-recovery/internal/filesystem"
	"photo-recovery/internal/logging"
	"photo-recovery/internal/metrics"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThumbnailSize is the edge of the square preview box.
	DefaultThumbnailSize = 200
	// DefaultThumbnailQuality is the JPEG quality of rendered previews.
	DefaultThumbnailQuality = 80

	// MaxImagePixels is the largest width*height Render will decode.
	// A 50MP image needs ~200MB as RGBA.
	MaxImagePixels = 50_000_000

	thumbnailPrefix = "thumb_"
	thumbnailSuffix = ".jpg"
)

// ErrImageTooLarge is returned by Render when the header declares more
// than MaxImagePixels pixels.
var ErrImageTooLarge = errors.New("image exceeds pixel limit")

// ThumbnailGenerator renders square JPEG previews. The source image is
// scaled to fit inside the box and centred on a white background.
type ThumbnailGenerator struct {
	size    int
	quality int
}

// NewThumbnailGenerator returns a generator for size x size previews.
// Non-positive values fall back to the defaults.
func NewThumbnailGenerator(size, quality int) *ThumbnailGenerator {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbnailQuality
	}
	return &ThumbnailGenerator{size: size, quality: quality}
}

// Size returns the preview edge length in pixels.
func (t *ThumbnailGenerator) Size() int {
	return t.size
}

// ThumbnailName returns the file name a preview of entry name is stored under.
func ThumbnailName(name string) string {
	return thumbnailPrefix + name + thumbnailSuffix
}

// Render decodes data and returns the encoded preview.
func (t *ThumbnailGenerator) Render(data []byte) ([]byte, error) {
	backend := "imaging"
	start := time.Now()

	// Headers are cheap to read and can claim sizes a small compressed
	// body would expand into gigabytes.
	if config, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if pixels := int64(config.Width) * int64(config.Height); pixels > MaxImagePixels {
			metrics.ThumbnailRenders.WithLabelValues(backend, "error").Inc()
			return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, config.Width, config.Height)
		}
	}

	var (
		img image.Image
		err error
	)
	if IsVipsAvailable() {
		img, err = shrinkWithVips(data, t.size)
		if err == nil {
			backend = "vips"
		} else {
			logging.Debug("vips shrink failed, falling back to imaging: %v", err)
		}
	}
	if img == nil {
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			metrics.ThumbnailRenders.WithLabelValues(backend, "error").Inc()
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}

	out, err := t.encode(t.letterbox(img))
	metrics.ThumbnailRenderDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailRenders.WithLabelValues(backend, "error").Inc()
		return nil, err
	}

	metrics.ThumbnailRenders.WithLabelValues(backend, "success").Inc()
	return out, nil
}

// Save renders data and writes the preview for entry name into dir.
// It returns the preview's file name.
func (t *ThumbnailGenerator) Save(dir, name string, data []byte) (string, error) {
	out, err := t.Render(data)
	if err != nil {
		return "", err
	}

	ref := ThumbnailName(name)
	if err := filesystem.WriteFileWithRetry(filepath.Join(dir, ref), out, 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return ref, nil
}

// letterbox scales img to fit the box, upscaling small images, and
// composites it onto an opaque white square.
func (t *ThumbnailGenerator) letterbox(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	w, h := containSize(bounds.Dx(), bounds.Dy(), t.size)

	var fitted *image.NRGBA
	if bounds.Dx() > t.size || bounds.Dy() > t.size {
		fitted = imaging.Fit(img, t.size, t.size, imaging.Lanczos)
	} else {
		fitted = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	background := imaging.New(t.size, t.size, color.White)
	return imaging.OverlayCenter(background, fitted, 1.0)
}

func (t *ThumbnailGenerator) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// containSize returns the largest w x h with the source aspect ratio that
// fits inside a box x box square. Both results are at least 1.
func containSize(srcW, srcH, box int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return box, box
	}
	if srcW >= srcH {
		h := srcH * box / srcW
		return box, max(h, 1)
	}
	w := srcW * box / srcH
	return max(w, 1), box
}
