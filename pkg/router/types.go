package router

import (
	"context"
	"net/http"
)

// Params holds named captures produced by a pattern match.
type Params map[string]string

// Pattern matches a request's host and pathname, yielding named captures.
// Implementations must be safe for concurrent use; the route table is shared
// across requests.
type Pattern interface {
	// Exec attempts a match. On success it returns the captured parameters
	// (possibly empty, never nil).
	Exec(host, pathname string) (Params, bool)

	// String returns the source pattern, e.g. "/projects/:id".
	String() string
}

// Meta describes a route's placement in the route table.
type Meta struct {
	// Pattern is the source pattern string, e.g. "/blog/:slug".
	Pattern string

	// Nesting marks a layout-style route that implies a descendant leaf
	// or an index sibling.
	Nesting bool

	// Filename is the module specifier the route was generated from,
	// e.g. "/routes/blog/index.go". It keys the client-side route-module
	// registry.
	Filename string
}

// FetchFunc resolves a module's data for a request. The request carries the
// incoming method, body and headers with the URL replaced by the matched
// route URL.
type FetchFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// DataConfig is a route module's optional data-fetch configuration.
type DataConfig struct {
	// CacheTTL is the data cache lifetime in seconds. Zero means unset.
	CacheTTL int

	// Fetch resolves the module's data. May be nil.
	Fetch FetchFunc
}

// RouteModule is the resolved form of a route's module.
type RouteModule struct {
	// HasDefault reports whether the module exports a page component.
	// Modules without one are dropped from the render set after data
	// loading.
	HasDefault bool

	// Data is the module's data-fetch configuration, if any.
	Data *DataConfig
}

// ModuleLoader imports a route's module. Loaders may suspend on I/O.
type ModuleLoader func(ctx context.Context) (*RouteModule, error)

// Route is one entry of the ordered route table.
type Route struct {
	Pattern Pattern
	Loader  ModuleLoader
	Meta    Meta
}

// Reserved patterns for the two special pages.
const (
	// AppPattern is the root layout route. When present it is prepended
	// to every non-empty match list.
	AppPattern = "/_app"

	// NotFoundPattern is the fallback page appended when no leaf route
	// matches.
	NotFoundPattern = "/_404"
)

// IsApp reports whether the route is the root layout.
func (r *Route) IsApp() bool { return r.Meta.Pattern == AppPattern }

// IsNotFound reports whether the route is the not-found fallback.
func (r *Route) IsNotFound() bool { return r.Meta.Pattern == NotFoundPattern }

// Match pairs a capture result with its route. Pathname is the concrete path
// the pattern matched against: the request path for exact and synthetic
// matches, a trimmed prefix for ancestor matches, or the "/index" sibling
// path.
type Match struct {
	Route    *Route
	Params   Params
	Pathname string
}
