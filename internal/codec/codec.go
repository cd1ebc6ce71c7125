// Package codec provides stream compression and decompression used to frame
// clipboard payloads.
package codec

import "io"

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for no compression.
	Extension() string
}

// Compressing is implemented by writers that compress what they are given.
// Encoders can check for it to avoid stacking a second compression layer.
type Compressing interface {
	Compressing() bool
}
