// Package asset turns discovered source files into hashed assets and streams
// them to a single consumer.
package asset

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// ErrInvalidPath is returned when a logical path is not valid UTF-8.
var ErrInvalidPath = errors.New("not a valid UTF-8 path")

// LocalFile is a regular file found under the source root.
type LocalFile struct {
	DiskPath string
	// LogicalPath is DiskPath relative to the source root with '/' separators.
	LogicalPath string
	Size        int64
}

// Hash is a 32-byte BLAKE3 digest of a logical path and its contents.
type Hash [32]byte

// String returns the lowercase hex encoding used to name Content Store
// entries.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// contentsDomainKey is the BLAKE3 key for content addressing. Changing it
// invalidates every stored hash.
var contentsDomainKey = [32]byte{
	'r', 'e', 'v', 's', 'i', 't', 'e', '.', 'i', 'n', 'p', 'u', 't', '.',
	'c', 'o', 'n', 't', 'e', 'n', 't', 's', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashContents computes the content address of logicalPath holding data:
// keyed BLAKE3 over logicalPath || "/" || data.
func HashContents(logicalPath string, data []byte) Hash {
	hasher, err := blake3.NewKeyed(contentsDomainKey[:])
	if err != nil {
		panic("asset: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.WriteString(logicalPath)
	hasher.WriteString("/")
	hasher.Write(data)

	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// Asset is a loaded and hashed LocalFile. It is consumed exactly once.
type Asset struct {
	Meta     LocalFile
	Contents *Contents
	Hash     Hash
}

// Load maps the file's bytes and computes its hash.
func Load(meta LocalFile) (*Asset, error) {
	contents, err := MapFile(meta.DiskPath, meta.Size)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", meta.LogicalPath, err)
	}

	return &Asset{
		Meta:     meta,
		Contents: contents,
		Hash:     HashContents(meta.LogicalPath, contents.Bytes()),
	}, nil
}

// Replace swaps the asset's contents for data and rehashes it. The previous
// contents are released.
func (a *Asset) Replace(data []byte) error {
	if err := a.Contents.Close(); err != nil {
		return err
	}
	a.Contents = OwnedContents(data)
	a.Hash = HashContents(a.Meta.LogicalPath, data)
	return nil
}

// Bytes returns the asset's current contents.
func (a *Asset) Bytes() []byte {
	return a.Contents.Bytes()
}

// Close releases the asset's contents.
func (a *Asset) Close() error {
	return a.Contents.Close()
}
