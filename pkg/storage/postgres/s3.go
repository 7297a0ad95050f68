package postgres

import (
	"context"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keebreview/keebreview/pkg/storage"
)

// BlobStore implements reviews.BlobStore on S3-compatible object storage.
type BlobStore struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewBlobStore creates a BlobStore from the storage configuration. It works
// against AWS S3 and against S3-compatible endpoints such as MinIO when
// S3Endpoint and path-style addressing are configured.
func NewBlobStore(ctx context.Context, cfg storage.Config) (*BlobStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	baseURL := strings.TrimSuffix(cfg.S3PublicBaseURL, "/")
	if baseURL == "" {
		if cfg.S3Endpoint != "" {
			baseURL = strings.TrimSuffix(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
		}
	}

	return &BlobStore{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: baseURL,
	}, nil
}

// Put uploads an object and returns its public URL.
func (b *BlobStore) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "s3.put",
		trace.WithAttributes(
			attribute.String("s3.bucket", b.bucket),
			attribute.String("s3.key", key),
		))
	defer span.End()

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &b.bucket,
		Key:         &key,
		Body:        content,
		ContentType: &contentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put object failed")
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return b.publicBaseURL + "/" + key, nil
}

// Delete removes objects. It keeps going past individual failures and
// reports the first error, so one missing object does not strand the rest.
func (b *BlobStore) Delete(ctx context.Context, keys ...string) error {
	ctx, span := tracer.Start(ctx, "s3.delete",
		trace.WithAttributes(
			attribute.String("s3.bucket", b.bucket),
			attribute.Int("s3.key_count", len(keys)),
		))
	defer span.End()

	var firstErr error
	for _, key := range keys {
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: &b.bucket,
			Key:    &key,
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete object %s: %w", key, err)
		}
	}
	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, "delete objects failed")
	}
	return firstErr
}

// KeyFromURL recovers the storage key from a public URL built by Put.
// Unrecognized URLs fall back to the final path segments after the bucket
// marker, or the URL itself.
func (b *BlobStore) KeyFromURL(url string) string {
	if rest, ok := strings.CutPrefix(url, b.publicBaseURL+"/"); ok {
		return rest
	}
	if idx := strings.Index(url, "/"+b.bucket+"/"); idx >= 0 {
		return url[idx+len(b.bucket)+2:]
	}
	return url
}
