// Package upload publishes clipboards to object storage under
// content-addressed keys, with a summary stored alongside.
package upload

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/codec/gzipcodec"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/summary"
	"github.com/blockforge/clipio/internal/volume"
)

// Dir is the key directory uploads are stored under. A published
// clipboard with id X is reachable as "url:X".
const Dir = "uploads/"

// idLen is the number of hex characters of the BLAKE3 digest used as id.
const idLen = 32

// Uploader stores objects.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	// URL returns the public location of key.
	URL(key string) string
}

// Result describes a published clipboard.
type Result struct {
	ID         string
	Key        string
	URL        string
	SummaryKey string
	Summary    *summary.Summary
}

type options struct {
	creator   string
	encoding  summary.Encoding
	logger    *zap.Logger
	collector stats.Collector
}

// Option configures Publish.
type Option func(*options)

// WithCreator records who published the clipboard.
func WithCreator(name string) Option {
	return func(o *options) { o.creator = name }
}

// WithSummaryEncoding selects the summary encoding. The default is JSON.
func WithSummaryEncoding(e summary.Encoding) Option {
	return func(o *options) { o.encoding = e }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return func(o *options) { o.collector = c }
}

// Publish encodes v with f inside a gzip stream, keys it by the BLAKE3
// digest of the stored bytes and uploads it together with its summary.
// Formats that compress on their own see the gzip writer and skip their
// inner compression, so the object decodes with a single gunzip.
func Publish(ctx context.Context, up Uploader, f format.Format, v *volume.Volume, opts ...Option) (*Result, error) {
	o := options{
		encoding:  summary.EncodingJSON,
		logger:    zap.NewNop(),
		collector: stats.NewNoop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := Encode(f, v)
	if err != nil {
		return nil, err
	}

	sum := blake3.Sum256(data)
	id := hex.EncodeToString(sum[:])[:idLen]
	key := Dir + id + "." + f.Extension()

	if err := up.Put(ctx, key, "application/gzip", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}
	o.collector.IncCounter(stats.MetricUploads, 1)
	o.collector.ObserveHistogram(stats.MetricUploadBytes, float64(len(data)))

	s := summary.Build(v, o.creator)
	meta, err := s.Encode(o.encoding)
	if err != nil {
		return nil, err
	}
	summaryKey := Dir + id + "." + string(o.encoding)
	if err := up.Put(ctx, summaryKey, o.encoding.ContentType(), bytes.NewReader(meta)); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", summaryKey, err)
	}

	o.logger.Info("clipboard published",
		zap.String("id", id),
		zap.String("format", f.Name()),
		zap.Int("bytes", len(data)),
		zap.String("creator", o.creator),
	)

	return &Result{
		ID:         id,
		Key:        key,
		URL:        up.URL(key),
		SummaryKey: summaryKey,
		Summary:    s,
	}, nil
}

// Encode writes v with f through a gzip writer and returns the stored bytes.
func Encode(f format.Format, v *volume.Volume) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzipcodec.New().Writer(&buf)
	if err != nil {
		return nil, err
	}
	// format.Write closes gz, flushing the gzip trailer into buf.
	if err := format.Write(f, gz, v); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f.Name(), err)
	}
	return buf.Bytes(), nil
}

// parseBucketPath splits "scheme://bucket/prefix" into bucket and a prefix
// that is empty or ends in "/".
func parseBucketPath(scheme, path string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(path, scheme+"://") {
		return "", "", fmt.Errorf("invalid path %q: must start with %s://", path, scheme)
	}

	rest := strings.TrimPrefix(path, scheme+"://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid path %q: missing bucket name", path)
	}

	bucket = parts[0]
	if len(parts) > 1 {
		prefix = strings.TrimSuffix(parts[1], "/")
		if prefix != "" {
			prefix += "/"
		}
	}
	return bucket, prefix, nil
}
