package glaze

import (
	"log/slog"

	"github.com/glaze-dev/glaze/pkg/assets"
	"github.com/glaze-dev/glaze/pkg/rewrite"
	"github.com/glaze-dev/glaze/pkg/router"
	"github.com/glaze-dev/glaze/pkg/ssr"
	"github.com/glaze-dev/glaze/pkg/styles"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the main application configuration.
type Config struct {
	// Routes is the ordered route table. It is supplied once and treated
	// as immutable input; glaze never constructs or mutates it.
	Routes []router.Route

	// Render is the external render callback. When nil, every request
	// serves the untouched static template.
	Render ssr.RenderFunc

	// Template configures the static HTML template source.
	Template TemplateConfig

	// Static configures public asset serving.
	Static StaticConfig

	// Styles wires the dependency graph, CSS bundler and utility-class
	// generator used to collect per-module style tags.
	Styles StylesConfig

	// Handlers are caller-supplied rewrite handlers, applied after the
	// built-in ones in the same document pass.
	Handlers []rewrite.Handler

	// Manifest maps source asset names to fingerprinted ones. Optional.
	Manifest *assets.Manifest

	// DevMode enables hot-reload script injection and disables CSS
	// minification. Never enable in production.
	DevMode bool

	// ReloadURL overrides the hot-reload websocket URL advertised to
	// browsers in dev mode. Empty means the client derives it from the
	// page origin.
	ReloadURL string

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// TemplateConfig configures the static template source.
type TemplateConfig struct {
	// Path is the template file, e.g. "index.html". The file is read per
	// request; read errors propagate as server errors.
	Path string
}

// StaticConfig configures public asset serving.
type StaticConfig struct {
	// Dir is the directory containing static files (e.g. "public").
	// Empty disables static serving.
	Dir string

	// Prefix is the URL path prefix for static files. Default "/".
	Prefix string
}

// StylesConfig wires the style-collection collaborators. All fields are
// optional; missing ones simply produce no style tags.
type StylesConfig struct {
	Graph   styles.Graph
	Bundle  styles.Bundler
	Utility styles.UtilityGenerator
}

// DefaultStaticConfig returns the static serving defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{Prefix: "/"}
}
