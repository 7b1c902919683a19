// Package fs discovers the source files of a site on the local filesystem.
package fs

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"revsite/internal/asset"
)

// Subdirs are the source directories the walker visits, in order. Anything
// else under the root is ignored.
var Subdirs = []string{"assets", "content", "static", "templates"}

// Walker walks a site's source tree. It skips hidden entries, non-regular
// files and anything matched by .gitignore/.ignore files or the configured
// patterns.
type Walker struct {
	root   string
	ignore []string
}

// NewWalker creates a walker rooted at root. ignorePatterns apply to the
// whole tree in addition to any ignore files found while walking.
func NewWalker(root string, ignorePatterns []string) *Walker {
	return &Walker{root: root, ignore: ignorePatterns}
}

// Root returns the directory the walker was created with.
func (w *Walker) Root() string {
	return w.root
}

// Walk calls emit for every file under the known subdirectories. A missing
// subdirectory is skipped; one that is not a directory is an error.
func (w *Walker) Walk(ctx context.Context, emit func(asset.LocalFile) error) error {
	matcher := NewIgnoreMatcher(w.ignore)
	if err := matcher.LoadDir(w.root, ""); err != nil {
		return err
	}

	for _, sub := range Subdirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := filepath.Join(w.root, sub)
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("source path is not a directory: %s", dir)
		}

		if err := w.walkDir(ctx, dir, matcher, emit); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkDir(ctx context.Context, dir string, matcher *IgnoreMatcher, emit func(asset.LocalFile) error) error {
	return filepath.WalkDir(dir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := w.logicalPath(p)
		if err != nil {
			return err
		}

		if p != dir {
			if strings.HasPrefix(d.Name(), ".") || matcher.Match(rel, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return matcher.LoadDir(p, rel)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		return emit(asset.LocalFile{DiskPath: p, LogicalPath: rel, Size: info.Size()})
	})
}

// logicalPath returns p relative to the root with '/' separators.
func (w *Walker) logicalPath(p string) (string, error) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", p, err)
	}
	if !utf8.ValidString(rel) {
		return "", fmt.Errorf("%q: %w", rel, asset.ErrInvalidPath)
	}
	return filepath.ToSlash(rel), nil
}

// Compile-time check that Walker implements asset.Walker
var _ asset.Walker = (*Walker)(nil)
