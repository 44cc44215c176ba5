// Package media inspects and renders image buffers extracted from archives.
//
// It provides three pure operations used by the recovery pipeline:
//   - Classify: decides from extension and magic bytes whether a buffer is
//     an image and which format it carries
//   - Probe: reads width, height and format from the image header
//   - ThumbnailGenerator.Render: produces a square JPEG preview, letterboxed
//     on white
//
// libvips is optional. When InitVips has been called, Probe falls back to it
// for formats the Go decoders cannot read and thumbnails use its
// decode-time shrinking.
package media
