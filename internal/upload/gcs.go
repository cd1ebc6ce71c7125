package upload

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// Compile-time check that GCS implements Uploader.
var _ Uploader = (*GCS)(nil)

// GCS uploads to Google Cloud Storage.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS creates a GCS uploader.
// gcsPath should be in the format "gs://bucket/prefix".
func NewGCS(ctx context.Context, gcsPath string) (*GCS, error) {
	bucket, prefix, err := parseBucketPath("gs", gcsPath)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
	}, nil
}

// Put streams body to the object at key.
func (u *GCS) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	writer := u.bucket.Object(u.prefix + key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, body); err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}

// URL returns the public object URL.
func (u *GCS) URL(key string) string {
	return "https://storage.googleapis.com/" + u.name + "/" + u.prefix + key
}

// Close releases resources.
func (u *GCS) Close() error {
	return u.client.Close()
}
