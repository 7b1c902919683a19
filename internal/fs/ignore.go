package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreFileNames are read from every directory the walker enters, in this
// order. Later files take precedence.
var ignoreFileNames = []string{".gitignore", ".ignore"}

// IgnoreMatcher checks logical paths against gitignore-style patterns.
// Patterns read from a directory's ignore files only apply below that
// directory, and later patterns override earlier ones (including negation
// with '!').
type IgnoreMatcher struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings that
// apply to the whole tree. Blank lines and lines starting with '#' are
// skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	m.Add(nil, rawPatterns)
	return m
}

// Add appends patterns scoped to domain, the path components of the
// directory they were read from.
func (m *IgnoreMatcher) Add(domain []string, rawPatterns []string) {
	added := false
	for _, raw := range rawPatterns {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		m.patterns = append(m.patterns, gitignore.ParsePattern(raw, domain))
		added = true
	}
	if added {
		m.matcher = gitignore.NewMatcher(m.patterns)
	}
}

// Match reports whether the '/'-separated relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if m.matcher == nil || relativePath == "" {
		return false
	}
	return m.matcher.Match(strings.Split(relativePath, "/"), isDir)
}

// LoadDir reads the ignore files in dir, whose '/'-separated path relative to
// the root is rel, and adds their patterns.
func (m *IgnoreMatcher) LoadDir(dir, rel string) error {
	var domain []string
	if rel != "" && rel != "." {
		domain = strings.Split(rel, "/")
	}
	for _, name := range ignoreFileNames {
		patterns, err := ParseIgnoreFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		m.Add(domain, patterns)
	}
	return nil
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
