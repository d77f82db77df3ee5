package rewrite

import (
	"bytes"
	"sync"
	"testing"
)

func readyEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.EnsureReady(); err != nil {
		t.Fatal(err)
	}
	return e
}

func rewriteString(t *testing.T, template string, handlers []Handler) string {
	t.Helper()
	chunks, err := readyEngine(t).Rewrite([]byte(template), handlers)
	if err != nil {
		t.Fatal(err)
	}
	return string(Concat(chunks))
}

func TestRewriteRequiresReadiness(t *testing.T) {
	e := NewEngine()
	if _, err := e.Rewrite([]byte("<p></p>"), nil); err == nil {
		t.Fatal("Rewrite succeeded without EnsureReady")
	}
}

func TestEnsureReadyIdempotent(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 3; i++ {
		if err := e.EnsureReady(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRewriteAfterReadyOnAnotherGoroutine(t *testing.T) {
	e := NewEngine()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.EnsureReady(); err != nil {
			t.Error(err)
		}
	}()
	<-done

	doc := []byte("<p>hi</p>")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunks, err := e.Rewrite(doc, nil)
			if err != nil {
				t.Error(err)
				return
			}
			if got := string(Concat(chunks)); got != "<p>hi</p>" {
				t.Errorf("got %q", got)
			}
		}()
	}
	wg.Wait()
}

func TestRewritePassthrough(t *testing.T) {
	doc := "<!DOCTYPE html>\n<html><head><title>x</title></head><body><p>hi</p></body></html>"
	if got := rewriteString(t, doc, nil); got != doc {
		t.Errorf("passthrough altered document:\n got %q\nwant %q", got, doc)
	}
}

func TestRewriteReplaceElement(t *testing.T) {
	doc := `<body><ssr-body><p>placeholder</p></ssr-body></body>`
	got := rewriteString(t, doc, []Handler{
		On("ssr-body", "", func(el *Element) { el.ReplaceWith("<main>rendered</main>") }),
	})
	want := `<body><main>rendered</main></body>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteRemoveElement(t *testing.T) {
	doc := `<head><ssr-head></ssr-head><title>x</title></head>`
	got := rewriteString(t, doc, []Handler{
		On("ssr-head", "", func(el *Element) { el.Remove() }),
	})
	want := `<head><title>x</title></head>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteSetAttr(t *testing.T) {
	doc := `<link rel="stylesheet" href="style.css">`
	got := rewriteString(t, doc, []Handler{
		On("link", "href", func(el *Element) { el.SetAttr("href", "/style.css") }),
	})
	want := `<link rel="stylesheet" href="/style.css">`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteSetAttrKeepsEmptyValues(t *testing.T) {
	doc := `<img src="a.png" alt="">`
	got := rewriteString(t, doc, []Handler{
		On("img", "src", func(el *Element) { el.SetAttr("src", "/a.png") }),
	})
	want := `<img src="/a.png" alt="">`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteAttrSelector(t *testing.T) {
	doc := `<script>inline()</script><script src="app.js"></script>`
	var visited int
	rewriteString(t, doc, []Handler{
		On("script", "src", func(el *Element) { visited++ }),
	})
	if visited != 1 {
		t.Errorf("attr selector visited %d elements, want 1", visited)
	}
}

func TestRewriteInsertAfter(t *testing.T) {
	doc := `<head><script type="module" src="/app.js"></script></head>`
	got := rewriteString(t, doc, []Handler{
		On("script", "src", func(el *Element) {
			el.InsertAfter(`<script nomodule src="/fallback.js"></script>`)
		}),
	})
	want := `<head><script type="module" src="/app.js"></script><script nomodule src="/fallback.js"></script></head>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteInsertAfterVoidElement(t *testing.T) {
	doc := `<link rel="stylesheet" href="/a.css"><p>x</p>`
	got := rewriteString(t, doc, []Handler{
		On("link", "href", func(el *Element) { el.InsertAfter(`<script>hot()</script>`) }),
	})
	want := `<link rel="stylesheet" href="/a.css"><script>hot()</script><p>x</p>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteAppendInner(t *testing.T) {
	doc := `<head><title>x</title></head><body></body>`
	got := rewriteString(t, doc, []Handler{
		On("head", "", func(el *Element) { el.AppendInner(`<meta name="injected">`) }),
	})
	want := `<head><title>x</title><meta name="injected"></head><body></body>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteAppendInnerNestedSameTag(t *testing.T) {
	doc := `<div id="outer"><div>inner</div></div>`
	got := rewriteString(t, doc, []Handler{
		On("div", "id", func(el *Element) { el.AppendInner(`<span>tail</span>`) }),
	})
	want := `<div id="outer"><div>inner</div><span>tail</span></div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteRegistrationOrder(t *testing.T) {
	doc := `<body></body>`
	got := rewriteString(t, doc, []Handler{
		On("body", "", func(el *Element) { el.AppendInner("<i>1</i>") }),
		On("body", "", func(el *Element) { el.AppendInner("<i>2</i>") }),
	})
	want := `<body><i>1</i><i>2</i></body>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteIdempotent(t *testing.T) {
	doc := `<html><head><ssr-head></ssr-head></head><body><ssr-body></ssr-body></body></html>`
	handlers := func() []Handler {
		return []Handler{
			On("ssr-head", "", func(el *Element) { el.ReplaceWith(`<title>t</title>`) }),
			On("ssr-body", "", func(el *Element) { el.ReplaceWith(`<main>b</main>`) }),
		}
	}

	first, err := readyEngine(t).Rewrite([]byte(doc), handlers())
	if err != nil {
		t.Fatal(err)
	}
	second, err := readyEngine(t).Rewrite([]byte(doc), handlers())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(Concat(first), Concat(second)) {
		t.Errorf("identical input produced different output:\n%q\n%q", Concat(first), Concat(second))
	}
}

func TestConcat(t *testing.T) {
	chunks := [][]byte{[]byte("<a>"), []byte("</a>")}
	if got := string(Concat(chunks)); got != "<a></a>" {
		t.Errorf("Concat = %q", got)
	}
}
