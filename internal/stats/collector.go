// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Decode metrics.
	MetricDecodes        = "clipio_decodes_total"
	MetricDecodeFailures = "clipio_decode_failures_total"
	MetricDecodeSeconds  = "clipio_decode_duration_seconds"
	MetricBytesRead      = "clipio_source_bytes_read_total"

	// Discovery metrics.
	MetricHoldersDiscovered = "clipio_discovered_holders_total"
	MetricArchiveBytes      = "clipio_archive_entry_bytes"
	MetricArchiveErrors     = "clipio_archive_entry_errors_total"

	// Upload metrics.
	MetricUploads     = "clipio_uploads_total"
	MetricUploadBytes = "clipio_upload_bytes"

	// Cache metrics.
	MetricCacheHits   = "clipio_cache_hits_total"
	MetricCacheMisses = "clipio_cache_misses_total"
	MetricCacheSize   = "clipio_cache_size"
)

var help = map[string]string{
	MetricDecodes:           "Clipboards decoded by lazy holders.",
	MetricDecodeFailures:    "Clipboard decodes that returned an error.",
	MetricDecodeSeconds:     "Time spent decoding one clipboard.",
	MetricBytesRead:         "Bytes read from clipboard sources.",
	MetricHoldersDiscovered: "Holders produced by directory, bucket and archive discovery.",
	MetricArchiveBytes:      "Size of archive entries buffered in memory.",
	MetricArchiveErrors:     "Archive entries skipped because they could not be read.",
	MetricUploads:           "Clipboards published.",
	MetricUploadBytes:       "Size of published clipboard objects.",
	MetricCacheHits:         "Store cache hits.",
	MetricCacheMisses:       "Store cache misses.",
	MetricCacheSize:         "Objects held by the store cache.",
}

// Help returns the description of a metric, or its name when unknown.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
