package rewrite

// Attribute is one element attribute, in source order.
type Attribute struct {
	Key string
	Val string
}

// Element is a matched start tag. Handlers mutate it before the rewriter
// emits it; every mutation is scoped to the current document pass.
type Element struct {
	tag         string
	attrs       []Attribute
	selfClosing bool

	attrsChanged bool
	replaced     bool
	replacement  string
	after        []string
	inner        []string
}

// Tag returns the lower-cased tag name.
func (e *Element) Tag() string { return e.tag }

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or adds an attribute, preserving the order of existing ones.
func (e *Element) SetAttr(name, value string) {
	e.attrsChanged = true
	for i, a := range e.attrs {
		if a.Key == name {
			e.attrs[i].Val = value
			return
		}
	}
	e.attrs = append(e.attrs, Attribute{Key: name, Val: value})
}

// ReplaceWith replaces the element, including its subtree, with raw HTML.
func (e *Element) ReplaceWith(html string) {
	e.replaced = true
	e.replacement = html
}

// Remove drops the element and its subtree.
func (e *Element) Remove() {
	e.ReplaceWith("")
}

// InsertAfter emits raw HTML immediately after the element's end tag (or
// after the tag itself for void elements).
func (e *Element) InsertAfter(html string) {
	e.after = append(e.after, html)
}

// AppendInner emits raw HTML just before the element's end tag. It has no
// effect on void or replaced elements.
func (e *Element) AppendInner(html string) {
	e.inner = append(e.inner, html)
}

// voidElements never carry content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

func (e *Element) isVoid() bool {
	return e.selfClosing || voidElements[e.tag]
}
