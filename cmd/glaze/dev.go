package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/glaze-dev/glaze"
	"github.com/glaze-dev/glaze/internal/config"
	"github.com/glaze-dev/glaze/internal/dev"
)

func devCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot reload.

The dev server serves the project template and static files through
the page pipeline, injects the hot-reload client into every page, and
pushes reload messages to connected browsers when watched files
change.

Examples:
  glaze dev
  glaze dev --port 8080
  glaze dev --host 0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from glaze.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from glaze.json)")

	return cmd
}

func runDev(port int, host string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	app, err := glaze.New(glaze.Config{
		Template: glaze.TemplateConfig{Path: cfg.TemplatePath()},
		Static:   glaze.StaticConfig{Dir: cfg.PublicPath(), Prefix: cfg.Static.Prefix},
		DevMode:  true,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	reload := dev.NewReloadServer()
	defer reload.Close()

	mux := chi.NewRouter()
	mux.Use(chimiddleware.Recoverer)
	mux.Handle(dev.WebSocketPath, reload)
	mux.Handle("/*", app)

	if cfg.Dev.HotReload {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watch(ctx, cfg, reload, logger)
	}

	logger.Info("dev server ready", "url", cfg.DevURL())
	return listen(cfg.DevAddress(), mux, logger)
}

// watch polls the configured directories and pushes a reload on any change.
// CSS changes push a style-only update so browsers keep their state.
func watch(ctx context.Context, cfg *config.Config, reload *dev.ReloadServer, logger *slog.Logger) {
	seen := snapshot(cfg)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current := snapshot(cfg)
		changed := diff(seen, current)
		seen = current
		if len(changed) == 0 {
			continue
		}

		cssOnly := true
		for _, name := range changed {
			logger.Debug("changed", "file", name)
			if filepath.Ext(name) != ".css" {
				cssOnly = false
			}
		}
		if cssOnly {
			for _, name := range changed {
				reload.NotifyCSS("/" + filepath.ToSlash(name))
			}
		} else {
			reload.NotifyReload()
		}
		logger.Info("reloaded", "files", len(changed), "browsers", reload.ClientCount())
	}
}

// snapshot records the modification time of every file under the watch
// roots, keyed by path relative to the project root.
func snapshot(cfg *config.Config) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, root := range cfg.Dev.Watch {
		dir := filepath.Join(cfg.Dir(), root)
		filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			rel, err := filepath.Rel(cfg.Dir(), name)
			if err != nil {
				return nil
			}
			out[rel] = info.ModTime()
			return nil
		})
	}
	return out
}

func diff(before, after map[string]time.Time) []string {
	var changed []string
	for name, mtime := range after {
		if prev, ok := before[name]; !ok || !prev.Equal(mtime) {
			changed = append(changed, name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			changed = append(changed, name)
		}
	}
	return changed
}
