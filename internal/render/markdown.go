// Package render holds the opaque transforms used by the builder and the
// publisher: Markdown to HTML, Handlebars templates, CSS minification and
// HTML link rewriting.
package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// The goldmark instance is configured once and shared; Convert keeps its
// state per call.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		)
	})
	return markdownInstance
}

// Markdown converts a Markdown body (front matter already removed) to HTML.
// Raw HTML in the source is passed through.
func Markdown(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := getMarkdown().Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
