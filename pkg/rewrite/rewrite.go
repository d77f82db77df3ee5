// Package rewrite applies selector-bound element handlers over an HTML byte
// stream in a single pass.
//
// The tokenizer from golang.org/x/net/html does the parsing; this package
// binds handlers to elements and re-emits the document as a chunk sequence.
// Unmatched markup passes through byte for byte, so rewriting identical input
// with identical handler state is idempotent.
package rewrite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"
)

// Selector matches elements by tag name and, optionally, by the presence of
// an attribute.
type Selector struct {
	// Tag is the lower-cased tag name, e.g. "link".
	Tag string

	// Attr, when non-empty, requires the attribute to be present.
	Attr string
}

func (s Selector) matches(el *Element) bool {
	if s.Tag != el.tag {
		return false
	}
	if s.Attr == "" {
		return true
	}
	_, ok := el.Attr(s.Attr)
	return ok
}

// HandlerFunc visits one matched element.
type HandlerFunc func(el *Element)

// Handler binds a selector to a visitor. Handlers sharing a selector fire in
// registration order. Handler state (e.g. "already inserted" flags) must be
// request-scoped; never reuse a stateful handler across documents.
type Handler struct {
	Selector Selector
	Fn       HandlerFunc
}

// On is shorthand for constructing a Handler.
func On(tag, attr string, fn HandlerFunc) Handler {
	return Handler{Selector: Selector{Tag: tag, Attr: attr}, Fn: fn}
}

// Engine is the process-wide rewrite capability. Readiness initialization is
// explicit and idempotent; after EnsureReady the engine is stateless and
// safe for concurrent use, including when EnsureReady ran on another
// goroutine.
type Engine struct {
	once  sync.Once
	ready atomic.Bool
}

// NewEngine creates an engine. Call EnsureReady once at startup.
func NewEngine() *Engine { return &Engine{} }

// EnsureReady performs the one-time readiness initialization. Calling it
// again is a no-op.
func (e *Engine) EnsureReady() error {
	e.once.Do(func() { e.ready.Store(true) })
	return nil
}

// Rewrite performs one streaming pass over the template, visiting every
// element matched by a handler exactly once, in document order. It returns
// the emitted chunk sequence.
func (e *Engine) Rewrite(template []byte, handlers []Handler) ([][]byte, error) {
	if !e.ready.Load() {
		return nil, fmt.Errorf("rewrite: engine not initialized; call EnsureReady first")
	}

	w := &chunkWriter{}
	z := html.NewTokenizer(bytes.NewReader(template))

	// Open elements with pending inner/after fragments, innermost last.
	type openElement struct {
		tag   string
		inner []string
		after []string
		depth int
	}
	var open []*openElement

	// Same-named start tags nested under a pending element defer its
	// end-tag bookkeeping. Replaced elements are not counted: their end
	// tag is consumed by the subtree skip and never reaches the end-tag
	// branch.
	noteNested := func(el *Element) {
		if n := len(open); n > 0 && open[n-1].tag == el.tag && !el.isVoid() {
			open[n-1].depth++
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("rewrite: %w", err)
			}
			w.flush()
			return w.chunks, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			raw := z.Raw()
			el := readElement(z, tt == html.SelfClosingTagToken)

			matched := false
			for _, h := range handlers {
				if h.Selector.matches(el) {
					matched = true
					h.Fn(el)
				}
			}
			if !matched {
				noteNested(el)
				w.raw(raw)
				continue
			}

			if el.replaced {
				w.emit([]byte(el.replacement))
				if !el.isVoid() {
					if err := skipSubtree(z, el.tag); err != nil {
						return nil, err
					}
				}
				for _, frag := range el.after {
					w.emit([]byte(frag))
				}
				continue
			}
			noteNested(el)

			if el.attrsChanged {
				w.emit(renderTag(el))
			} else {
				w.raw(raw)
			}

			if el.isVoid() {
				for _, frag := range el.after {
					w.emit([]byte(frag))
				}
				continue
			}
			if len(el.inner) > 0 || len(el.after) > 0 {
				open = append(open, &openElement{tag: el.tag, inner: el.inner, after: el.after})
			}

		case html.EndTagToken:
			raw := z.Raw()
			name, _ := z.TagName()
			tag := string(name)
			if n := len(open); n > 0 && open[n-1].tag == tag {
				top := open[n-1]
				if top.depth > 0 {
					top.depth--
					w.raw(raw)
					continue
				}
				open = open[:n-1]
				for _, frag := range top.inner {
					w.emit([]byte(frag))
				}
				w.raw(raw)
				for _, frag := range top.after {
					w.emit([]byte(frag))
				}
				continue
			}
			w.raw(raw)

		default:
			w.raw(z.Raw())
		}
	}
}

// readElement captures the current start tag.
func readElement(z *html.Tokenizer, selfClosing bool) *Element {
	name, hasAttr := z.TagName()
	el := &Element{tag: string(name), selfClosing: selfClosing}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		el.attrs = append(el.attrs, Attribute{Key: string(key), Val: string(val)})
	}
	return el
}

// skipSubtree consumes tokens until the element's matching end tag.
func skipSubtree(z *html.Tokenizer, tag string) error {
	depth := 1
	for depth > 0 {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("rewrite: %w", err)
			}
			return nil // unclosed element; nothing left to skip
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == tag && !voidElements[tag] {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == tag {
				depth--
			}
		}
	}
	return nil
}

// renderTag re-serializes a start tag whose attributes were modified. Every
// attribute keeps an explicit value, empty ones included, so values like
// alt="" survive the round trip.
func renderTag(el *Element) []byte {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(el.tag)
	for _, a := range el.attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	if el.selfClosing {
		b.WriteByte('/')
	}
	b.WriteByte('>')
	return []byte(b.String())
}

// chunkWriter coalesces untouched runs into single chunks and cuts a new
// chunk at every handler-produced fragment.
type chunkWriter struct {
	chunks [][]byte
	buf    bytes.Buffer
}

// raw buffers passthrough bytes. The tokenizer reuses its raw buffer, so the
// bytes are copied here.
func (w *chunkWriter) raw(b []byte) {
	w.buf.Write(b)
}

func (w *chunkWriter) emit(b []byte) {
	w.flush()
	if len(b) > 0 {
		w.chunks = append(w.chunks, b)
	}
}

func (w *chunkWriter) flush() {
	if w.buf.Len() > 0 {
		w.chunks = append(w.chunks, append([]byte(nil), w.buf.Bytes()...))
		w.buf.Reset()
	}
}

// Concat joins a chunk sequence into the final document bytes.
func Concat(chunks [][]byte) []byte {
	var n int
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
