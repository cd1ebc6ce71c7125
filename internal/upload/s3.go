package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Compile-time check that S3 implements Uploader.
var _ Uploader = (*S3)(nil)

// PutAPI is the subset of the S3 client the uploader uses.
type PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads to AWS S3 or a compatible service.
type S3 struct {
	client PutAPI
	bucket string
	prefix string
	region string
}

// S3Option configures an S3 uploader.
type S3Option func(*S3)

// WithS3Client replaces the S3 client.
func WithS3Client(client PutAPI) S3Option {
	return func(u *S3) { u.client = client }
}

// NewS3 creates an S3 uploader.
// s3Path should be in the format "s3://bucket/prefix".
func NewS3(ctx context.Context, s3Path string, opts ...S3Option) (*S3, error) {
	bucket, prefix, err := parseBucketPath("s3", s3Path)
	if err != nil {
		return nil, err
	}

	u := &S3{bucket: bucket, prefix: prefix}
	for _, opt := range opts {
		opt(u)
	}
	if u.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		u.client = s3.NewFromConfig(cfg)
		u.region = cfg.Region
	}
	return u, nil
}

// Put uploads body to the object at key.
func (u *S3) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.prefix + key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

// URL returns the virtual-hosted object URL.
func (u *S3) URL(key string) string {
	host := u.bucket + ".s3.amazonaws.com"
	if u.region != "" {
		host = u.bucket + ".s3." + u.region + ".amazonaws.com"
	}
	return "https://" + host + "/" + u.prefix + key
}
