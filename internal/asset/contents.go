//go:build unix

package asset

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type contentsKind int

const (
	contentsEmpty contentsKind = iota
	contentsMapped
	contentsOwned
)

// Contents is a read-only view of a file's bytes. It is either empty, a
// memory map of the file, or an owned buffer (for example after
// minification). Call Close once the bytes are no longer needed; slices
// returned by Bytes must not be used after that.
type Contents struct {
	kind contentsKind
	data []byte
}

// EmptyContents returns a zero-length view. Zero-length files are never
// mapped.
func EmptyContents() *Contents {
	return &Contents{kind: contentsEmpty}
}

// OwnedContents wraps an in-memory buffer.
func OwnedContents(data []byte) *Contents {
	return &Contents{kind: contentsOwned, data: data}
}

// MapFile memory-maps size bytes of the file at path read-only.
func MapFile(path string, size int64) (*Contents, error) {
	if size == 0 {
		return EmptyContents(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("memory-mapping %s: %w", path, err)
	}

	return &Contents{kind: contentsMapped, data: data}, nil
}

// Bytes returns the viewed bytes.
func (c *Contents) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.data
}

// Len returns the number of viewed bytes.
func (c *Contents) Len() int {
	return len(c.Bytes())
}

// Close releases the mapping, if any. It is safe to call more than once.
func (c *Contents) Close() error {
	if c == nil || c.kind != contentsMapped || c.data == nil {
		return nil
	}
	data := c.data
	c.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("unmapping contents: %w", err)
	}
	return nil
}
