// Package glaze resolves HTTP requests into rendered HTML documents for a
// file-route-based web framework.
//
// The pipeline matches the request path against an ordered, possibly-nested
// route table, loads per-route data concurrently with redirect and error
// semantics, invokes an externally supplied render callback, and streams the
// result into a static HTML template through a single-pass, selector-driven
// rewrite that injects hydration data, bootstrap scripts, styles and
// dev-mode tooling.
//
// Create an App with glaze.New():
//
//	app, err := glaze.New(glaze.Config{
//	    Routes:   routes,
//	    Render:   renderPage,
//	    Template: glaze.TemplateConfig{Path: "index.html"},
//	    DevMode:  os.Getenv("ENV") != "production",
//	})
//	http.ListenAndServe(":3000", app)
//
// Route tables, CSS bundling, utility-class generation and the module
// dependency graph are external collaborators; glaze consumes them through
// the interfaces in pkg/router and pkg/styles.
package glaze

import (
	"github.com/glaze-dev/glaze/pkg/loader"
	"github.com/glaze-dev/glaze/pkg/router"
	"github.com/glaze-dev/glaze/pkg/ssr"
)

// Version is the framework version, overridden at release build time.
var Version = "dev"

// Re-exported core types so simple applications only import glaze.
type (
	// Route is one entry of the ordered route table.
	Route = router.Route

	// RouteModule is the resolved form of a route's module.
	RouteModule = router.RouteModule

	// DataConfig is a route module's optional data-fetch configuration.
	DataConfig = router.DataConfig

	// Module is the per-request resolved state for one matched route.
	Module = loader.Module

	// RenderFunc is the externally supplied render callback.
	RenderFunc = ssr.RenderFunc

	// HeadCollection holds head fragments appended during rendering.
	HeadCollection = ssr.HeadCollection
)

// MustPattern compiles a path pattern, panicking on malformed input.
var MustPattern = router.MustPattern
