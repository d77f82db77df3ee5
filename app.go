package glaze

import (
	"log/slog"
	"net/http"

	"github.com/glaze-dev/glaze/internal/dev"
	"github.com/glaze-dev/glaze/pkg/assets"
	"github.com/glaze-dev/glaze/pkg/loader"
	"github.com/glaze-dev/glaze/pkg/rewrite"
	"github.com/glaze-dev/glaze/pkg/router"
	"github.com/glaze-dev/glaze/pkg/ssr"
	"github.com/glaze-dev/glaze/pkg/styles"
)

// =============================================================================
// App Type
// =============================================================================

// App is the request pipeline: route matching, data loading, SSR, style
// collection, streaming rewrite and response assembly behind a single
// http.Handler.
type App struct {
	routes    []router.Route
	render    ssr.RenderFunc
	engine    *rewrite.Engine
	collector *styles.Collector
	resolver  *assets.Resolver
	template  *Template
	custom    []rewrite.Handler

	staticDir    string
	staticPrefix string
	staticFS     http.FileSystem

	config Config
	logger *slog.Logger
}

// New creates an App and performs the engine's one-time readiness
// initialization.
func New(cfg Config) (*App, error) {
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = DefaultStaticConfig().Prefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := rewrite.NewEngine()
	if err := engine.EnsureReady(); err != nil {
		return nil, err
	}

	app := &App{
		routes: cfg.Routes,
		render: cfg.Render,
		engine: engine,
		collector: &styles.Collector{
			Graph:   cfg.Styles.Graph,
			Bundle:  cfg.Styles.Bundle,
			Utility: cfg.Styles.Utility,
			Dev:     cfg.DevMode,
		},
		resolver:     &assets.Resolver{Manifest: cfg.Manifest},
		template:     NewTemplate(cfg.Template.Path),
		custom:       cfg.Handlers,
		staticDir:    cfg.Static.Dir,
		staticPrefix: cfg.Static.Prefix,
		config:       cfg,
		logger:       logger,
	}
	if cfg.Static.Dir != "" {
		app.staticFS = http.Dir(cfg.Static.Dir)
	}
	return app, nil
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP routes requests to static files, the dev runtime, or the page
// pipeline.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.config.DevMode && dev.ServeRuntime(r.URL.Path) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Write([]byte(dev.ClientRuntime))
		return
	}

	if a.staticFS != nil && a.shouldServeStatic(r.URL.Path) {
		a.serveStatic(w, r)
		return
	}

	a.servePage(w, r)
}

// servePage runs the request pipeline: match, load, redirect short-circuit,
// render, collect styles, rewrite, assemble.
func (a *App) servePage(w http.ResponseWriter, r *http.Request) {
	matches := router.MatchAll(r.URL, a.routes)

	loaded, err := loader.Load(r, matches)
	if err != nil {
		a.logger.Error("data load failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// A redirect outcome bypasses rendering and header computation
	// entirely. The scan runs over the full resolved set: a redirect from
	// a module without a default export still short-circuits.
	if header, status, ok := loader.Redirect(loaded); ok {
		copyHeader(w.Header(), header)
		w.WriteHeader(status)
		return
	}
	modules := loader.RenderSet(loaded)

	templateBytes, modTime, err := a.template.Load()
	if err != nil {
		a.logger.Error("template unreadable", "path", a.template.Path(), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	head := &ssr.HeadCollection{}
	result := ssr.Execute(r.Context(), a.render, &ssr.Input{
		URL:     r.URL,
		Modules: modules,
		Head:    head,
	})
	if result.Failed {
		a.logger.Error("render failed", "path", r.URL.Path)
	}

	// Freshness only applies when the template is served untouched by SSR.
	if !result.Rendered && !modTime.IsZero() {
		if notModified(r, modTime) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", formatModTime(modTime))
	}

	if result.Rendered && !result.Failed {
		tags, err := a.collector.Collect(modules)
		if err != nil {
			a.logger.Error("style collection failed", "path", r.URL.Path, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		head.Append(tags...)
	}

	state := &rewriteState{
		routes:    a.routes,
		modules:   modules,
		head:      head,
		ssr:       result,
		resolver:  a.resolver,
		devMode:   a.config.DevMode,
		reloadURL: a.config.ReloadURL,
	}
	chunks, err := a.engine.Rewrite(templateBytes, append(a.builtinHandlers(state), a.custom...))
	if err != nil {
		a.logger.Error("rewrite failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheControl(modules, result.Failed))
	flusher, _ := w.(http.Flusher)
	for _, chunk := range chunks {
		if _, err := w.Write(chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Handler returns the App as an http.Handler, for middleware wrapping.
func (a *App) Handler() http.Handler { return a }

// Config returns the app configuration.
func (a *App) Config() Config { return a.config }

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
