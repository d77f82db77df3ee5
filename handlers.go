package glaze

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glaze-dev/glaze/internal/dev"
	"github.com/glaze-dev/glaze/pkg/assets"
	"github.com/glaze-dev/glaze/pkg/loader"
	"github.com/glaze-dev/glaze/pkg/rewrite"
	"github.com/glaze-dev/glaze/pkg/router"
	"github.com/glaze-dev/glaze/pkg/ssr"
)

// Marker elements in the static template.
const (
	headMarkerTag = "ssr-head"
	bodyMarkerTag = "ssr-body"
)

// Embedded script element ids. Part of the wire contract with the client.
const (
	ssrDataID       = "ssr-data"
	routeManifestID = "route-manifest"
)

// nomoduleScript is inserted once after the first module-type script for
// browsers without ES module support.
const nomoduleScript = `<script nomodule>document.addEventListener("DOMContentLoaded",function(){document.body.innerHTML="<p><strong>This browser does not support ES modules.</strong></p>"});</script>`

// rewriteState carries one request's resolved state through the built-in
// handlers. The "already inserted" flags live here so a rewrite pass can
// never leak them into another request.
type rewriteState struct {
	routes    []router.Route
	modules   []*loader.Module
	head      *ssr.HeadCollection
	ssr       *ssr.Result
	resolver  *assets.Resolver
	devMode   bool
	reloadURL string

	nomoduleDone bool
	sharedDone   bool
}

// builtinHandlers binds the fixed handler set for one document pass.
func (a *App) builtinHandlers(st *rewriteState) []rewrite.Handler {
	return []rewrite.Handler{
		rewrite.On(headMarkerTag, "", st.handleHeadMarker),
		rewrite.On(bodyMarkerTag, "", st.handleBodyMarker),
		rewrite.On("link", "href", st.handleLink),
		rewrite.On("script", "src", st.handleScript),
		rewrite.On("head", "", st.handleShared),
		rewrite.On("body", "", st.handleShared),
	}
}

// handleHeadMarker replaces the head marker with, in order, the collected
// head fragments, the hydration-data script and the module-bootstrap script.
func (st *rewriteState) handleHeadMarker(el *rewrite.Element) {
	var b strings.Builder
	for _, frag := range st.head.Fragments() {
		b.WriteString(frag)
	}
	b.WriteString(hydrationScript(st.modules))
	b.WriteString(bootstrapScript(st.modules))
	el.ReplaceWith(b.String())
}

// handleBodyMarker swaps the body marker for the SSR output. Without SSR the
// marker stays untouched.
func (st *rewriteState) handleBodyMarker(el *rewrite.Element) {
	if st.ssr.Rendered {
		el.ReplaceWith(st.ssr.Body)
	}
}

// handleLink normalizes relative hrefs. In dev mode, stylesheet links also
// get a module-id attribute and a trailing hot-reload bootstrap.
func (st *rewriteState) handleLink(el *rewrite.Element) {
	href, _ := el.Attr("href")
	resolved := st.resolver.Resolve(href)
	if resolved != href {
		el.SetAttr("href", resolved)
	}
	if st.devMode {
		if rel, _ := el.Attr("rel"); rel == "stylesheet" {
			el.SetAttr("data-module-id", resolved)
			el.InsertAfter(dev.StyleHotScript(resolved))
		}
	}
}

// handleScript normalizes relative srcs and inserts the nomodule fallback
// after the first module-type script, once per document.
func (st *rewriteState) handleScript(el *rewrite.Element) {
	src, _ := el.Attr("src")
	resolved := st.resolver.Resolve(src)
	if resolved != src {
		el.SetAttr("src", resolved)
	}
	if typ, _ := el.Attr("type"); typ == "module" && !st.nomoduleDone {
		st.nomoduleDone = true
		el.InsertAfter(nomoduleScript)
	}
}

// handleShared fires once total, on whichever of head or body triggers
// first: it appends the route manifest and, in dev mode, the reload scripts.
func (st *rewriteState) handleShared(el *rewrite.Element) {
	if st.sharedDone {
		return
	}
	st.sharedDone = true

	if len(st.routes) > 0 {
		el.AppendInner(routeManifestScript(st.routes))
	}
	if st.devMode {
		if script := dev.WebSocketURLScript(st.reloadURL); script != "" {
			el.AppendInner(script)
		}
		el.AppendInner(dev.BootstrapScript())
	}
}

// hydrationRecord is one entry of the "#ssr-data" payload.
type hydrationRecord struct {
	URL          string             `json:"url"`
	Module       string             `json:"module"`
	Error        *loader.FetchError `json:"error,omitempty"`
	Data         json.RawMessage    `json:"data,omitempty"`
	DataCacheTTL int                `json:"dataCacheTtl,omitempty"`
}

// hydrationScript emits the hydration-data script tag consumed by the
// client. json.Marshal escapes "<" so module data can never break out of
// the script element.
func hydrationScript(modules []*loader.Module) string {
	records := make([]hydrationRecord, len(modules))
	for i, mod := range modules {
		rec := hydrationRecord{
			URL:          mod.URL.String(),
			Module:       mod.Filename,
			DataCacheTTL: mod.DataCacheTTL,
		}
		if data, ok := mod.Outcome.Data(); ok {
			rec.Data = data
		}
		if fetchErr, ok := mod.Outcome.Err(); ok {
			rec.Error = &fetchErr
		}
		records[i] = rec
	}
	payload, err := json.Marshal(records)
	if err != nil {
		payload = []byte("[]")
	}
	return `<script id="` + ssrDataID + `" type="application/json">` + string(payload) + `</script>`
}

// bootstrapScript emits the module-bootstrap script: it imports each
// surviving module by filename and registers it in the client-side
// route-module table keyed by filename. This exact shape is a compatibility
// contract with the client and must reproduce byte for byte.
func bootstrapScript(modules []*loader.Module) string {
	if len(modules) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<script type="module">`)
	for i, mod := range modules {
		fmt.Fprintf(&b, "import $%d from %s;", i, jsString(mod.Filename))
	}
	b.WriteString("window.__ROUTE_MODULES={")
	for i, mod := range modules {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:$%d", jsString(mod.Filename), i)
	}
	b.WriteString("};</script>")
	return b.String()
}

// manifestRoute is one entry of the "#route-manifest" payload.
type manifestRoute struct {
	Pattern  string `json:"pattern"`
	Filename string `json:"filename"`
	Nesting  bool   `json:"nesting,omitempty"`
}

func routeManifestScript(routes []router.Route) string {
	entries := make([]manifestRoute, len(routes))
	for i, r := range routes {
		entries[i] = manifestRoute{
			Pattern:  r.Meta.Pattern,
			Filename: r.Meta.Filename,
			Nesting:  r.Meta.Nesting,
		}
	}
	payload, err := json.Marshal(struct {
		Routes []manifestRoute `json:"routes"`
	}{entries})
	if err != nil {
		payload = []byte(`{"routes":[]}`)
	}
	return `<script id="` + routeManifestID + `" type="application/json">` + string(payload) + `</script>`
}

// jsString renders a JS string literal. JSON string syntax is a subset of
// JS, and Marshal's "<" escaping keeps "</script>" out of the output.
func jsString(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(quoted)
}
