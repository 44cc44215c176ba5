// Package repair recovers decodable images from damaged buffers.
//
// The Engine applies signature-driven heuristics in a fixed order and
// returns the first slice of the input that passes a metadata probe:
//
//  1. offset_scan: drop a growing prefix in fixed steps
//  2. jpeg_boundary: keep the span from the first JPEG start-of-image
//     marker to the last end-of-image marker
//  3. png_signature: keep everything from the first PNG signature
//
// No pixel data is reconstructed. Results are deterministic for identical
// input bytes.
package repair
