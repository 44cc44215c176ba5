package recovery

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrThumbnailNotFound is returned when an entry has no rendered thumbnail.
	ErrThumbnailNotFound = errors.New("thumbnail not found")
	// ErrSessionProcessing is returned when an operation needs a terminal session.
	ErrSessionProcessing = errors.New("session is still processing")
	// ErrSessionCleanedUp is returned when a session's files are gone.
	ErrSessionCleanedUp = errors.New("session files have been cleaned up")
	// ErrRegistryClosed is returned by Start after Close.
	ErrRegistryClosed = errors.New("recovery registry is closed")
)

// ContainerError means the upload is not a readable archive. It fails the
// whole session.
type ContainerError struct {
	Err error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("archive container: %v", e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// EntryErrorKind classifies a per-entry failure.
type EntryErrorKind string

const (
	EntryExtraction EntryErrorKind = "extraction"
	MetadataProbe   EntryErrorKind = "metadata_probe"
	ThumbnailRender EntryErrorKind = "thumbnail_render"
	FilesystemWrite EntryErrorKind = "filesystem_write"
)

// EntryError is a failure confined to one archive entry.
type EntryError struct {
	Kind EntryErrorKind
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
