package render

import (
	"fmt"
	"sync"

	"github.com/aymerick/raymond"
)

// TemplateLoader returns the source of the named template.
type TemplateLoader func(name string) (string, error)

// Templates is a lazily filled registry of parsed Handlebars templates. It
// lives for one publish run and is safe for concurrent use.
type Templates struct {
	load TemplateLoader

	mu    sync.Mutex
	cache map[string]*raymond.Template
}

// NewTemplates creates an empty registry that fetches sources with load.
func NewTemplates(load TemplateLoader) *Templates {
	return &Templates{load: load, cache: make(map[string]*raymond.Template)}
}

// Render executes the named template with ctx.
func (t *Templates) Render(name string, ctx map[string]any) (string, error) {
	tpl, err := t.get(name)
	if err != nil {
		return "", err
	}
	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return out, nil
}

// Len returns the number of templates parsed so far.
func (t *Templates) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cache)
}

func (t *Templates) get(name string) (*raymond.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tpl, ok := t.cache[name]; ok {
		return tpl, nil
	}

	source, err := t.load(name)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", name, err)
	}
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	t.cache[name] = tpl
	return tpl, nil
}

// SafeHTML marks already rendered HTML so templates insert it unescaped.
func SafeHTML(s string) raymond.SafeString {
	return raymond.SafeString(s)
}
