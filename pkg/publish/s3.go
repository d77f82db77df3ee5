// Package publish uploads a built site (template, scripts, styles, static
// assets) to S3-compatible storage for static deploys.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Publisher uploads build output to an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	pub := publish.NewPublisher(s3.NewFromConfig(cfg), "my-bucket")
//	err := pub.PublishDir(ctx, "dist")
type Publisher struct {
	client   *s3.Client
	bucket   string
	prefix   string
	cacheTTL time.Duration
	logger   *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPrefix sets a key prefix for all uploaded objects.
func WithPrefix(prefix string) PublisherOption {
	return func(p *Publisher) { p.prefix = prefix }
}

// WithCacheTTL sets the Cache-Control max-age applied to fingerprinted
// assets. Unfingerprinted files (the HTML template, the asset manifest)
// always upload with a no-cache policy.
func WithCacheTTL(ttl time.Duration) PublisherOption {
	return func(p *Publisher) { p.cacheTTL = ttl }
}

// WithLogger sets the logger for upload progress.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// NewPublisher creates a Publisher targeting the given bucket.
func NewPublisher(client *s3.Client, bucket string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:   client,
		bucket:   bucket,
		cacheTTL: 365 * 24 * time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewClient builds an S3 client from the ambient AWS configuration
// (environment, shared config files, instance metadata).
func NewClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// PublishDir walks dir and uploads every regular file, preserving the
// relative layout under the configured prefix.
func (p *Publisher) PublishDir(ctx context.Context, dir string) error {
	var count int
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		if err := p.PublishFile(ctx, name, filepath.ToSlash(rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("publish complete", "bucket", p.bucket, "files", count)
	return nil
}

// PublishFile uploads a single file under the given object key (relative to
// the configured prefix).
func (p *Publisher) PublishFile(ctx context.Context, name, key string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	fullKey := path.Join(p.prefix, key)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(fullKey),
		Body:         f,
		ContentType:  aws.String(contentType(key)),
		CacheControl: aws.String(p.cachePolicy(key)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	p.logger.Debug("uploaded", "key", fullKey)
	return nil
}

// Prune removes objects under the prefix whose keys are absent from keep.
// Used after a publish to drop assets from previous builds.
func (p *Publisher) Prune(ctx context.Context, keep map[string]bool) error {
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.prefix),
	})

	var stale []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(*obj.Key, p.prefix), "/")
			if !keep[rel] {
				stale = append(stale, *obj.Key)
			}
		}
	}

	for _, key := range stale {
		if _, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		p.logger.Debug("pruned", "key", key)
	}
	return nil
}

// cachePolicy returns the Cache-Control header for an object. HTML and the
// asset manifest change between builds under the same key, so they must be
// revalidated; everything else carries a content hash in its filename.
func (p *Publisher) cachePolicy(key string) string {
	switch {
	case strings.HasSuffix(key, ".html"), path.Base(key) == "manifest.json":
		return "public, max-age=0, must-revalidate"
	default:
		return fmt.Sprintf("public, max-age=%d, immutable", int(p.cacheTTL.Seconds()))
	}
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
