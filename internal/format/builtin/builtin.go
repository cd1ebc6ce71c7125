// Package builtin wires the built-in formats into a registry.
//
// Detection order is schematic, structure, png, fawe. The schematic format
// checks a header signature and must come before the suffix-only formats.
package builtin

import (
	"sync"

	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/fawefmt"
	"github.com/blockforge/clipio/internal/format/pngfmt"
	"github.com/blockforge/clipio/internal/format/schematicfmt"
	"github.com/blockforge/clipio/internal/format/structurefmt"
)

// Formats returns fresh instances of the built-in formats in registration
// order.
func Formats() []format.Format {
	return []format.Format{
		schematicfmt.New(),
		structurefmt.New(),
		pngfmt.New(),
		fawefmt.New(),
	}
}

// NewRegistry returns a registry holding the built-in formats. It panics
// if they collide, which is a programming error.
func NewRegistry(logger *zap.Logger) *format.Registry {
	r := format.NewRegistry(logger)
	for _, f := range Formats() {
		r.MustRegister(f)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *format.Registry {
	return NewRegistry(nil)
})

// Default returns the process-wide registry. It is populated on first use
// and lives for the rest of the process; formats registered on it are
// visible to every caller.
func Default() *format.Registry {
	return defaultRegistry()
}
