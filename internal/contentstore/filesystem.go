// Package contentstore provides the Content Store backends that hold the
// bytes of non-inline input files.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"revsite/internal/site"
)

// FileSystemStore keeps every entry as a file in one flat cache directory,
// named by the lowercase hex content hash:
//
//	<cache_dir>/
//	  <hash>     (64 hex characters)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at dir, creating the directory if
// needed.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileSystemStore{root: dir}, nil
}

// Path returns the location of the entry for key.
func (s *FileSystemStore) Path(key string) string {
	return filepath.Join(s.root, key)
}

// StatContent reports the size of the entry for key.
func (s *FileSystemStore) StatContent(ctx context.Context, key string) (int64, bool, error) {
	info, err := os.Stat(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat content %s: %w", key, err)
	}
	return info.Size(), true, nil
}

// PutContent stores content under key. Entries are content-addressed, so an
// existing entry is left alone once its size is confirmed.
func (s *FileSystemStore) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	destPath := s.Path(key)

	if info, err := os.Stat(destPath); err == nil {
		if info.Size() != size {
			return fmt.Errorf("%w: %s holds %d bytes, source has %d", site.ErrIntegrity, key, info.Size(), size)
		}
		return nil
	}

	return s.writeFile(destPath, r, size)
}

// GetContent copies the entry for key to w.
func (s *FileSystemStore) GetContent(ctx context.Context, key string, w io.Writer) error {
	f, err := os.Open(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", site.ErrContentNotFound, key)
		}
		return fmt.Errorf("failed to open content: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read content %s: %w", key, err)
	}
	return nil
}

// RemoveContent deletes the entry for key.
func (s *FileSystemStore) RemoveContent(ctx context.Context, key string) error {
	if err := os.Remove(s.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", site.ErrContentNotFound, key)
		}
		return fmt.Errorf("removing content %s: %w", key, err)
	}
	return nil
}

// ValidateSetup verifies that the cache directory is accessible.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("cache directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache path is not a directory: %s", s.root)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (s *FileSystemStore) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", site.ErrIntegrity, expectedSize, written)
	}

	// Concurrent writers of the same key produce identical bytes, so the last
	// rename wins harmlessly.
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements site.ContentStore interface
var _ site.ContentStore = (*FileSystemStore)(nil)
