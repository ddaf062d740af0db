package revdom

import (
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

var (
	minifierOnce sync.Once
	minifierInst *minify.M
)

// htmlMinifier returns a process-wide singleton minifier, mirroring the
// teacher's lazily-initialized tdewolff minifier (html_minify.go).
func htmlMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifierInst = minify.New()
		minifierInst.AddFunc("text/html", html.Minify)
	})
	return minifierInst
}

// NormalizeSource applies the pre-parse normalization §4.2 requires: it
// strips HTML comments and collapses inter-tag whitespace so that the
// server's parse tree, the HTML sent to the client, and the client's live
// DOM after browser parsing are structurally identical. This must run on
// every template's evaluated output before it is handed to Parse whenever a
// baseline will be established from the result.
func NormalizeSource(evaluated string) string {
	if strings.TrimSpace(evaluated) == "" {
		return evaluated
	}
	minified, err := htmlMinifier().String("text/html", evaluated)
	if err != nil {
		// Minification is an optimization for structural alignment, not a
		// correctness requirement in itself (Parse's own whitespace/comment
		// filtering is what actually guarantees alignment) - fall back to
		// the unminified source rather than fail the render.
		return evaluated
	}
	return minified
}
