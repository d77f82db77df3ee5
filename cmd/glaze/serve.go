package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/glaze-dev/glaze"
	"github.com/glaze-dev/glaze/internal/config"
	"github.com/glaze-dev/glaze/pkg/assets"
	"github.com/glaze-dev/glaze/pkg/middleware"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		metrics bool
		tracing bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a built site",
		Long: `Serve the build output through the page pipeline.

Reads glaze.json from the project root, serves static assets from the
build output directory, and runs every page request through the
rewrite pipeline so asset references resolve against the fingerprint
manifest.

Examples:
  glaze serve
  glaze serve --addr :8080 --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, metrics, tracing)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3000", "Address to listen on")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Expose Prometheus metrics on /metrics")
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Trace requests with OpenTelemetry")

	return cmd
}

func runServe(addr string, metrics, tracing bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	out := cfg.OutputPath()
	manifest, err := assets.LoadManifest(filepath.Join(out, "manifest.json"))
	if err != nil {
		logger.Warn("no asset manifest, serving unfingerprinted paths", "error", err)
		manifest = nil
	}

	app, err := glaze.New(glaze.Config{
		Template: glaze.TemplateConfig{Path: filepath.Join(out, "index.html")},
		Static:   glaze.StaticConfig{Dir: out, Prefix: cfg.Static.Prefix},
		Manifest: manifest,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RealIP)
	mux.Use(chimiddleware.Recoverer)
	if tracing {
		mux.Use(middleware.OpenTelemetry())
	}
	if metrics {
		mux.Use(middleware.Prometheus())
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/*", app)

	return listen(addr, mux, logger)
}

// listen runs the HTTP server until SIGINT or SIGTERM, then drains.
func listen(addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
