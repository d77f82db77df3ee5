// Package ssr invokes the application's render callback and shields the
// pipeline from its failures.
package ssr

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"runtime/debug"

	"github.com/glaze-dev/glaze/pkg/loader"
)

// HeadCollection is an ordered, request-scoped sequence of HTML fragments
// destined for the document head. The render callback appends to it; the
// stream rewriter consumes it once. Never share a collection across requests.
type HeadCollection struct {
	fragments []string
}

// Append adds fragments in order.
func (h *HeadCollection) Append(fragments ...string) {
	h.fragments = append(h.fragments, fragments...)
}

// Fragments returns the collected fragments.
func (h *HeadCollection) Fragments() []string { return h.fragments }

// Reset discards all collected fragments.
func (h *HeadCollection) Reset() { h.fragments = nil }

// Input is what the render callback receives.
type Input struct {
	URL     *url.URL
	Modules []*loader.Module
	Head    *HeadCollection
}

// RenderFunc is the externally supplied render callback. It may suspend and
// may fail. Returning ok=false skips SSR entirely; the pipeline serves the
// untouched static template.
type RenderFunc func(ctx context.Context, input *Input) (body string, ok bool, err error)

// Result is the executor's three-way outcome.
type Result struct {
	// Body is the SSR output, or the failure fallback when Failed is set.
	Body string

	// Rendered reports whether a body (SSR output or fallback) exists.
	Rendered bool

	// Failed reports a render failure. Failures force a non-cacheable
	// response.
	Failed bool
}

// failure carries a render failure's message and its diagnostic trace,
// captured at the failure site.
type failure struct {
	message string
	stack   string
}

// Execute invokes render exactly once. A returned error or a panic counts as
// a render failure: partial head fragments are discarded and the body is
// replaced by the failure's message and diagnostic trace in a preformatted
// code block. Raw traces in the page body are acceptable for development;
// hiding them in production is the application's concern.
func Execute(ctx context.Context, render RenderFunc, input *Input) *Result {
	if render == nil {
		return &Result{}
	}

	body, ok, f := protect(ctx, render, input)
	if f != nil {
		input.Head.Reset()
		body := "<code><pre>" + html.EscapeString(f.message) + "\n" + html.EscapeString(f.stack) + "</pre></code>"
		return &Result{Body: body, Rendered: true, Failed: true}
	}
	if !ok {
		return &Result{}
	}
	return &Result{Body: body, Rendered: true}
}

func protect(ctx context.Context, render RenderFunc, input *Input) (body string, ok bool, f *failure) {
	defer func() {
		if r := recover(); r != nil {
			f = &failure{message: fmt.Sprint(r), stack: string(debug.Stack())}
		}
	}()
	body, ok, err := render(ctx, input)
	if err != nil {
		return "", false, &failure{message: err.Error(), stack: string(debug.Stack())}
	}
	return body, ok, nil
}
