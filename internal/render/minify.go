package render

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

const cssMediaType = "text/css"

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(cssMediaType, css.Minify)
	return m
}()

// MinifyCSS returns the minified form of a stylesheet.
func MinifyCSS(src []byte) ([]byte, error) {
	out, err := minifier.Bytes(cssMediaType, src)
	if err != nil {
		return nil, fmt.Errorf("minifying css: %w", err)
	}
	return out, nil
}
