package site

import (
	"path"
	"strings"

	"revsite/internal/asset"
)

// Kind is the role of an input file, decided by its top-level directory.
type Kind int

const (
	KindUnknown Kind = iota
	KindAsset
	KindContent
	KindStatic
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindContent:
		return "content"
	case KindStatic:
		return "static"
	case KindTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// subdirs maps each recognized top-level directory to its kind.
var subdirs = map[string]Kind{
	"assets":    KindAsset,
	"content":   KindContent,
	"static":    KindStatic,
	"templates": KindTemplate,
}

// inlineExtensions lists the extensions whose bytes are kept in the
// metadata store instead of the Content Store.
var inlineExtensions = map[string]bool{
	"hbs":  true,
	"html": true,
	"md":   true,
}

// Classify returns the kind of the file at logicalPath.
func Classify(logicalPath string) Kind {
	top, _, ok := strings.Cut(logicalPath, "/")
	if !ok {
		return KindUnknown
	}
	return subdirs[top]
}

// IsInline reports whether the file at logicalPath is stored inline.
func IsInline(logicalPath string) bool {
	ext := strings.TrimPrefix(path.Ext(logicalPath), ".")
	return inlineExtensions[strings.ToLower(ext)]
}

func isStylesheet(kind Kind, logicalPath string) bool {
	return kind == KindAsset && strings.EqualFold(path.Ext(logicalPath), ".css")
}

func isMarkdown(logicalPath string) bool {
	return strings.HasSuffix(logicalPath, ".md")
}

func isHTML(logicalPath string) bool {
	return strings.EqualFold(path.Ext(logicalPath), ".html")
}

// Route derives the output path of a file. The top-level directory is not
// part of the route. Stylesheets carry their content hash in the file name,
// Markdown content is published as .html, other content and templates get no
// route.
func Route(kind Kind, logicalPath string, hash asset.Hash) (string, bool) {
	_, rel, _ := strings.Cut(logicalPath, "/")

	switch kind {
	case KindAsset:
		if isStylesheet(kind, logicalPath) {
			ext := path.Ext(rel)
			return strings.TrimSuffix(rel, ext) + "." + hash.String() + ext, true
		}
		return rel, true
	case KindContent:
		if !isMarkdown(rel) {
			return "", false
		}
		return strings.TrimSuffix(rel, ".md") + ".html", true
	case KindStatic:
		return rel, true
	default:
		return "", false
	}
}
