package site

import (
	"context"
	"io"
)

// ContentStore holds the bytes of non-inline input files, keyed by the hex
// content hash. Entries are written at most once and only removed by cleanup.
type ContentStore interface {
	// StatContent returns the size of the entry stored under key and whether
	// it exists.
	StatContent(ctx context.Context, key string) (int64, bool, error)

	// PutContent stores size bytes read from r under key. Storing an existing
	// key again is a no-op as long as the size matches; a size mismatch wraps
	// ErrIntegrity.
	PutContent(ctx context.Context, key string, r io.Reader, size int64) error

	// GetContent writes the entry stored under key to w. A missing entry wraps
	// ErrContentNotFound.
	GetContent(ctx context.Context, key string, w io.Writer) error

	// RemoveContent deletes the entry stored under key. A missing entry wraps
	// ErrContentNotFound.
	RemoveContent(ctx context.Context, key string) error

	// ValidateSetup verifies that the store is accessible and properly
	// configured.
	ValidateSetup(ctx context.Context) error
}
