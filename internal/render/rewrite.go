package render

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkResolver maps site-relative paths to routes of the revision being
// published.
type LinkResolver interface {
	// ResolveLink returns the route that path refers to. path is relative to
	// the base URL, already unescaped, and never empty or ending in '/'.
	ResolveLink(path string) (route string, ok bool)
	// Integrity returns the SRI attribute value for a route.
	Integrity(route string) (string, error)
}

// LinkWarning describes an href that could not be resolved.
type LinkWarning struct {
	Route string
	Href  string
}

// Rewriter rewrites <a href> and <link href> references in rendered HTML so
// they point at the routes of a revision, and adds integrity attributes to
// resolved <link> elements.
type Rewriter struct {
	base     *url.URL
	resolver LinkResolver
}

// NewRewriter creates a rewriter for pages published under base.
func NewRewriter(base *url.URL, resolver LinkResolver) *Rewriter {
	b := *base
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	b.RawPath = ""
	return &Rewriter{base: &b, resolver: resolver}
}

// Rewrite processes the HTML published at route. Markup other than the
// rewritten start tags is copied byte for byte. Unresolved links are left
// untouched and returned as warnings.
func (rw *Rewriter) Rewrite(route string, src []byte) ([]byte, []LinkWarning, error) {
	pageURL := rw.base.JoinPath(route)

	var out bytes.Buffer
	out.Grow(len(src))
	var warnings []LinkWarning

	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("tokenizing %s: %w", route, z.Err())
		}

		raw := z.Raw()
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}

		raw = bytes.Clone(raw)
		tok := z.Token()
		if tok.DataAtom != atom.A && tok.DataAtom != atom.Link {
			out.Write(raw)
			continue
		}

		changed, warn, err := rw.rewriteTag(&tok, route, pageURL)
		if err != nil {
			return nil, nil, err
		}
		if warn != "" {
			warnings = append(warnings, LinkWarning{Route: route, Href: warn})
		}
		if changed {
			out.WriteString(tok.String())
		} else {
			out.Write(raw)
		}
	}

	return out.Bytes(), warnings, nil
}

// rewriteTag updates tok's href (and integrity for <link>). It returns the
// href when it could not be resolved.
func (rw *Rewriter) rewriteTag(tok *html.Token, route string, pageURL *url.URL) (bool, string, error) {
	hrefIdx := -1
	for i, a := range tok.Attr {
		if a.Namespace == "" && a.Key == "href" {
			hrefIdx = i
			break
		}
	}
	if hrefIdx < 0 {
		return false, "", nil
	}

	href := tok.Attr[hrefIdx].Val
	if href == "" || strings.HasPrefix(href, "#") {
		return false, "", nil
	}

	target, rel, ok := rw.locate(href, pageURL)
	if !ok {
		return false, "", nil
	}

	resolved, found := rw.resolver.ResolveLink(rel)
	if !found {
		return false, href, nil
	}

	changed := false
	if resolved != rel {
		tok.Attr[hrefIdx].Val = relativeHref(route, resolved, target)
		changed = true
	}

	if tok.DataAtom == atom.Link {
		integrity, err := rw.resolver.Integrity(resolved)
		if err != nil {
			return false, "", fmt.Errorf("computing integrity of %s: %w", resolved, err)
		}
		setAttr(tok, "integrity", integrity)
		changed = true
	}

	return changed, "", nil
}

// locate resolves href against the page URL and returns the resolved URL and
// its path relative to the base URL. ok is false for hrefs that point outside
// the site.
func (rw *Rewriter) locate(href string, pageURL *url.URL) (*url.URL, string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, "", false
	}
	if !u.IsAbs() {
		u = pageURL.ResolveReference(u)
	}
	if u.Scheme != rw.base.Scheme || u.Host != rw.base.Host {
		return nil, "", false
	}

	p := u.Path
	if p+"/" == rw.base.Path {
		p = rw.base.Path
	}
	if !strings.HasPrefix(p, rw.base.Path) {
		return nil, "", false
	}

	rel := strings.TrimPrefix(p, rw.base.Path)
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}
	return u, rel, true
}

// relativeHref returns the href from route's directory to target, keeping
// the query and fragment of the original reference.
func relativeHref(route, target string, orig *url.URL) string {
	href := relativePath(path.Dir(route), target)
	if orig.RawQuery != "" {
		href += "?" + orig.RawQuery
	}
	if orig.Fragment != "" {
		href += "#" + orig.EscapedFragment()
	}
	return href
}

// relativePath returns the '/'-separated path of target as seen from dir.
// Both are relative to the site root.
func relativePath(dir, target string) string {
	var from []string
	if dir != "." && dir != "" {
		from = strings.Split(dir, "/")
	}
	to := strings.Split(target, "/")

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	parts := make([]string, 0, len(from)-common+len(to)-common)
	for range from[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)

	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}

func setAttr(tok *html.Token, key, val string) {
	for i, a := range tok.Attr {
		if a.Namespace == "" && a.Key == key {
			tok.Attr[i].Val = val
			return
		}
	}
	tok.Attr = append(tok.Attr, html.Attribute{Key: key, Val: val})
}

// Integrity returns the subresource-integrity value for data.
func Integrity(data []byte) string {
	sum := sha512.Sum384(data)
	return "sha384-" + base64.StdEncoding.EncodeToString(sum[:])
}
