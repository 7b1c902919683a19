package site

import "errors"

var (
	// ErrUnknownFileKind is returned for a file outside the recognized source
	// subdirectories.
	ErrUnknownFileKind = errors.New("unknown file kind")

	// ErrIntegrity is returned when stored content disagrees with its source,
	// such as a size mismatch for the same content hash.
	ErrIntegrity = errors.New("content integrity violation")

	// ErrContentNotFound is returned when a content store entry is missing.
	ErrContentNotFound = errors.New("content not found")

	// ErrRevisionNotFound is returned when a requested revision does not exist.
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrNotInline is returned when a content page has no inline contents.
	ErrNotInline = errors.New("content is not inline")
)
