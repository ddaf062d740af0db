//go:build browsercheck

// Package browsercheck exercises the §4.2 structural-alignment contract
// against a real browser DOM rather than only against golang.org/x/net/html's
// parse tree: it renders a fragment through revdom, serves it over HTTP, and
// asks a headless Chrome instance (via chromedp) how many elements it
// actually produced. Gated behind a build tag because it needs a Chrome/
// Chromium binary on PATH, unlike the rest of the suite.
package browsercheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/livefir/revdom"
)

func TestServerTreeMatchesLiveDOM(t *testing.T) {
	source := `<div dj-root><ul><li data-key="1">one</li><li data-key="2">two</li></ul></div>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<!doctype html><html><body>"+source+"</body></html>")
	}))
	defer srv.Close()

	tree, err := revdom.Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantElements := countElements(tree)

	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, 30*time.Second)
	defer timeoutCancel()

	var gotElements int
	err = chromedp.Run(ctx,
		chromedp.Navigate(srv.URL),
		chromedp.Evaluate(`document.querySelectorAll('*').length`, &gotElements, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true)
		}),
	)
	if err != nil {
		t.Fatalf("chromedp run: %v", err)
	}

	// The browser also counts html/head/body, which revdom's fragment
	// parse never sees; allow for that fixed offset instead of demanding
	// exact equality.
	const browserWrapperElements = 3
	if gotElements-browserWrapperElements != wantElements {
		t.Fatalf("live DOM element count %d (minus wrapper %d) != server tree count %d", gotElements, browserWrapperElements, wantElements)
	}
}

func countElements(n *revdom.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Kind == revdom.KindElement && n.Tag != "dj-root" {
		count++
	}
	for _, c := range n.Children {
		count += countElements(c)
	}
	return count
}
