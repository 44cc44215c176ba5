// Package archive reads uploaded zip archives and packages recovered files.
//
// Reading and writing both go through github.com/klauspost/compress/zip.
// Entry names are flattened by Sanitize and made unique per session by a
// NameAllocator so that no two entries share an on-disk path. Pack writes
// a directory tree back out as a zip at maximum deflate compression.
package archive
