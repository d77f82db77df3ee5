// Package router matches request URLs against an ordered, possibly-nested
// route table.
//
// The table is consumed, never constructed, here: callers supply ordered
// []Route values and the first list-order match wins at every resolution
// stage (leaf search, ancestor search, index-sibling search). Two reserved
// patterns get special treatment: "/_app" (root layout, prepended to any
// non-empty match list) and "/_404" (not-found fallback, appended when no
// leaf route matched).
package router

import (
	"net/url"
	"strings"
)

// MatchAll resolves a request URL against the route table, honoring nesting
// and fallback rules. The result preserves table order semantics:
//
//   - An exact match records the route; a nesting match (other than the root
//     layout) additionally records the first route matching pathname+"/index".
//   - A nesting route that does not match exactly is retried against
//     progressively shorter ancestor prefixes of the request path; the first
//     prefix hit is recorded.
//   - If no recorded match is a leaf, a synthetic "/_404" match anchored at
//     the request path is appended, at most once.
//   - If the list is non-empty and does not start with "/_app", a synthetic
//     root-layout match is prepended when such a route exists.
//
// An empty route table, or no match with no fallback route, yields an empty
// list.
func MatchAll(u *url.URL, routes []Route) []Match {
	var matches []Match
	host := u.Host
	pathname := u.Path
	if pathname == "" {
		pathname = "/"
	}

	for i := range routes {
		route := &routes[i]
		if params, ok := route.Pattern.Exec(host, pathname); ok {
			matches = append(matches, Match{Route: route, Params: params, Pathname: pathname})
			if route.Meta.Nesting && !route.IsApp() {
				if m, ok := matchFirst(routes, host, indexSibling(pathname)); ok {
					matches = append(matches, m)
				}
			}
			continue
		}
		if route.Meta.Nesting {
			if m, ok := matchAncestor(route, host, pathname); ok {
				matches = append(matches, m)
			}
		}
	}

	if !hasLeaf(matches) {
		if nf := findRoute(routes, func(r *Route) bool { return r.IsNotFound() }); nf != nil {
			matches = append(matches, Match{Route: nf, Params: Params{}, Pathname: pathname})
		}
	}

	if len(matches) > 0 && !matches[0].Route.IsApp() {
		if app := findRoute(routes, func(r *Route) bool { return r.IsApp() }); app != nil {
			matches = append([]Match{{Route: app, Params: Params{}, Pathname: pathname}}, matches...)
		}
	}

	return matches
}

// indexSibling is the "/index" sibling path of a matched nesting route.
func indexSibling(pathname string) string {
	if strings.HasSuffix(pathname, "/") {
		return pathname + "index"
	}
	return pathname + "/index"
}

// matchFirst scans the full table for the first route matching pathname.
func matchFirst(routes []Route, host, pathname string) (Match, bool) {
	for i := range routes {
		route := &routes[i]
		if params, ok := route.Pattern.Exec(host, pathname); ok {
			return Match{Route: route, Params: params, Pathname: pathname}, true
		}
	}
	return Match{}, false
}

// matchAncestor retries a nesting route against shorter and shorter prefixes
// of pathname, dropping one trailing segment at a time.
func matchAncestor(route *Route, host, pathname string) (Match, bool) {
	p := pathname
	for {
		i := strings.LastIndexByte(p, '/')
		if i <= 0 {
			return Match{}, false
		}
		p = p[:i]
		if params, ok := route.Pattern.Exec(host, p); ok {
			return Match{Route: route, Params: params, Pathname: p}, true
		}
	}
}

func hasLeaf(matches []Match) bool {
	for i := range matches {
		if !matches[i].Route.Meta.Nesting {
			return true
		}
	}
	return false
}

func findRoute(routes []Route, pred func(*Route) bool) *Route {
	for i := range routes {
		if pred(&routes[i]) {
			return &routes[i]
		}
	}
	return nil
}
