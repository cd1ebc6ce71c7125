package clipio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/builtin"
	"github.com/blockforge/clipio/internal/holder"
	"github.com/blockforge/clipio/internal/volume"
)

// Schematic is a decoded clipboard with its placement metadata.
type Schematic struct {
	Name       string
	Volume     *volume.Volume
	Origin     volume.Vec3
	Dimensions volume.Vec3
}

// NewSchematic wraps v.
func NewSchematic(name string, v *volume.Volume) *Schematic {
	return &Schematic{
		Name:       name,
		Volume:     v,
		Origin:     v.Origin(),
		Dimensions: v.Size(),
	}
}

// Load reads the clipboard file at path, detecting its format with the
// built-in registry.
func Load(path string) (*Schematic, error) {
	f, ok := builtin.Default().Detect(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// LoadReader closes the file.
	s, err := LoadReader(file, f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	s.Name = nameOf(path)
	return s, nil
}

// LoadReader decodes one clipboard in format f from r and closes r when
// it is an io.Closer.
func LoadReader(r io.Reader, f format.Format) (*Schematic, error) {
	v, err := format.Read(f, r, nil)
	if err != nil {
		return nil, err
	}
	return NewSchematic(v.Meta.Name, v), nil
}

// FromHolder resolves h and names the result after its URI.
func FromHolder(ctx context.Context, h holder.Holder) (*Schematic, error) {
	v, err := h.Clipboard(ctx)
	if err != nil {
		return nil, err
	}
	return NewSchematic(nameOf(h.URI()), v), nil
}

// Save encodes the schematic to w in format f. w is closed when it is an
// io.Closer.
func (s *Schematic) Save(w io.Writer, f format.Format) error {
	if s.Volume == nil {
		return errors.New("clipio: schematic has no volume")
	}
	return format.Write(f, w, s.Volume)
}

// SaveFile writes the schematic to path in format f, adding the format's
// extension when path has none.
func (s *Schematic) SaveFile(path string, f format.Format) (string, error) {
	if s.Volume == nil {
		return "", errors.New("clipio: schematic has no volume")
	}
	if filepath.Ext(path) == "" {
		path += "." + f.Extension()
	}
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := s.Save(file, f); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	return path, nil
}

// nameOf returns the last path element of a file path, URL or archive
// entry URI, without its extension.
func nameOf(uri string) string {
	if _, entry, ok := strings.Cut(uri, "#"); ok {
		uri = entry
	}
	base := path.Base(strings.ReplaceAll(uri, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
