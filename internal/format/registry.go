package format

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateAlias is matched by *DuplicateAliasError via errors.Is.
	ErrDuplicateAlias = errors.New("format: duplicate alias")

	// ErrNotComparable is returned by Register for formats whose dynamic
	// type cannot be compared with ==.
	ErrNotComparable = errors.New("format: format type is not comparable")
)

// DuplicateAliasError reports an alias already owned by another format.
type DuplicateAliasError struct {
	Alias    string
	Existing string
	Incoming string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("format: alias %q of %s already registered by %s", e.Alias, e.Incoming, e.Existing)
}

// Is makes errors.Is(err, ErrDuplicateAlias) match.
func (e *DuplicateAliasError) Is(target error) bool {
	return target == ErrDuplicateAlias
}

// Handle identifies a registered format and its registration position.
type Handle struct {
	Format Format
	Order  int
}

// Registry is an append-only table of formats with an alias index.
// A Registry is safe for concurrent use; each Register call publishes the
// format and all of its aliases atomically.
type Registry struct {
	mu      sync.RWMutex
	formats []Format
	aliases map[string]Format
	logger  *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		aliases: make(map[string]Format),
		logger:  logger,
	}
}

// Register appends f. It fails without modifying the registry if any alias
// of f already maps to a different format.
// Registering the same format value twice returns the original handle.
// Formats are compared by identity, so implementations should be pointers;
// types that cannot be compared are rejected with ErrNotComparable.
func (r *Registry) Register(f Format) (Handle, error) {
	if !reflect.TypeOf(f).Comparable() {
		return Handle{}, fmt.Errorf("%w: %T", ErrNotComparable, f)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, g := range r.formats {
		if g == f {
			return Handle{Format: f, Order: i}, nil
		}
	}

	keys := make([]string, 0, len(f.Aliases()))
	for _, alias := range f.Aliases() {
		key := normalize(alias)
		if existing, ok := r.aliases[key]; ok && existing != f {
			return Handle{}, &DuplicateAliasError{
				Alias:    key,
				Existing: existing.Name(),
				Incoming: f.Name(),
			}
		}
		keys = append(keys, key)
	}

	for _, key := range keys {
		r.aliases[key] = f
	}
	r.formats = append(r.formats, f)

	r.logger.Debug("format registered",
		zap.String("format", f.Name()),
		zap.Strings("aliases", keys),
		zap.Int("order", len(r.formats)-1),
	)
	return Handle{Format: f, Order: len(r.formats) - 1}, nil
}

// RegisterOrWarn registers f and logs a warning instead of failing when an
// alias collides. It is meant for formats added at runtime.
func (r *Registry) RegisterOrWarn(f Format) (Handle, bool) {
	h, err := r.Register(f)
	if err != nil {
		r.logger.Warn("skipping format registration",
			zap.String("format", f.Name()),
			zap.Error(err),
		)
		return Handle{}, false
	}
	return h, true
}

// MustRegister registers f and panics on collision. Built-in formats use it.
func (r *Registry) MustRegister(f Format) Handle {
	h, err := r.Register(f)
	if err != nil {
		panic(err)
	}
	return h
}

// Lookup finds a format by alias, ignoring case and surrounding whitespace.
func (r *Registry) Lookup(alias string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.aliases[normalize(alias)]
	return f, ok
}

// ByExtension returns the first registered format whose default extension
// or alias equals ext (with or without a leading dot).
func (r *Registry) ByExtension(ext string) (Format, bool) {
	ext = normalize(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.formats {
		if f.Extension() == ext {
			return f, true
		}
	}
	f, ok := r.aliases[ext]
	return f, ok
}

// Detect asks each format, in registration order, whether path is in its
// format, and returns the first match. Order matters because several
// formats may share an extension; formats with header signatures should be
// registered before suffix-only ones.
func (r *Registry) Detect(path string) (Format, bool) {
	for _, f := range r.Formats() {
		if f.Detect(path) {
			return f, true
		}
	}
	return nil, false
}

// Formats returns a snapshot of the registered formats in registration order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, len(r.formats))
	copy(out, r.formats)
	return out
}

func normalize(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}
