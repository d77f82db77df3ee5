package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/glaze-dev/glaze/internal/config"
	"github.com/glaze-dev/glaze/pkg/publish"
)

func deployCmd() *cobra.Command {
	var (
		bucket string
		prefix string
		prune  bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload the build output to S3",
		Long: `Upload the build output directory to an S3 bucket.

Credentials come from the ambient AWS configuration (environment,
shared config files, instance metadata). The bucket and key prefix
default to the deploy section of glaze.json.

Examples:
  glaze deploy
  glaze deploy --bucket my-site --prefix v2 --prune`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, bucket, prefix, prune)
		},
	}

	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Target bucket (default from glaze.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Object key prefix (default from glaze.json)")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete objects not present in this build")

	return cmd
}

func runDeploy(cmd *cobra.Command, bucket, prefix string, prune bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if bucket == "" {
		bucket = cfg.Deploy.Bucket
	}
	if bucket == "" {
		return fmt.Errorf("no bucket configured; set deploy.bucket in glaze.json or pass --bucket")
	}
	if prefix == "" {
		prefix = cfg.Deploy.Prefix
	}

	out := cfg.OutputPath()
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("no build output at %s", out)
	}

	logger := slog.Default()
	ctx := cmd.Context()

	client, err := publish.NewClient(ctx)
	if err != nil {
		return err
	}

	opts := []publish.PublisherOption{
		publish.WithPrefix(prefix),
		publish.WithLogger(logger),
	}
	if cfg.Deploy.CacheSeconds > 0 {
		opts = append(opts, publish.WithCacheTTL(time.Duration(cfg.Deploy.CacheSeconds)*time.Second))
	}
	pub := publish.NewPublisher(client, bucket, opts...)

	if err := pub.PublishDir(ctx, out); err != nil {
		return err
	}

	if prune {
		keep, err := relativeFiles(out)
		if err != nil {
			return err
		}
		if err := pub.Prune(ctx, keep); err != nil {
			return err
		}
	}
	return nil
}

func relativeFiles(dir string) (map[string]bool, error) {
	keep := make(map[string]bool)
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		keep[filepath.ToSlash(rel)] = true
		return nil
	})
	return keep, err
}
