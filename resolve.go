package clipio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/discovery"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/holder"
	"github.com/blockforge/clipio/internal/source"
	"github.com/blockforge/clipio/internal/store"
)

// Input prefixes understood by LoadAll.
const (
	// PrefixUpload expands "url:<id>" to the uploads area of the web host.
	PrefixUpload = "url:"

	// PrefixStore resolves "store:<key>" against the loader's object store.
	PrefixStore = "store:"
)

// LoadAll resolves input with the loader's default format.
//
// input is one of:
//   - "url:<id>", a published upload on the configured web host;
//   - an http(s) URL of a zip archive or single clipboard on a trusted host;
//   - "store:<key>", an object or key prefix in the configured store;
//   - a path relative to the save directory, naming a file (with or
//     without the format's extension) or a directory of clipboards.
//
// Archive entries that cannot be read do not discard the ones that could:
// in that case both a Multi and an error are returned.
func (l *Loader) LoadAll(ctx context.Context, actor Actor, input string) (*holder.Multi, error) {
	return l.LoadAllAs(ctx, actor, l.format, input)
}

// LoadAllAs is LoadAll with an explicit format.
func (l *Loader) LoadAllAs(ctx context.Context, actor Actor, f format.Format, input string) (*holder.Multi, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	input = strings.TrimSpace(input)
	wc := worldContext(actor)

	if id, ok := strings.CutPrefix(input, PrefixUpload); ok {
		expanded, err := l.uploadURL(id, f)
		if err != nil {
			return nil, err
		}
		input = expanded
	}

	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return l.loadURL(ctx, input, f, wc)
	case strings.HasPrefix(input, PrefixStore):
		return l.loadStore(ctx, strings.TrimPrefix(input, PrefixStore), f, wc)
	default:
		return l.loadLocal(actor, input, f, wc)
	}
}

// uploadURL returns <web.url>/uploads/<id>.<ext>.
func (l *Loader) uploadURL(id string, f format.Format) (string, error) {
	if l.cfg.Web.URL == "" {
		return "", fmt.Errorf("%w: no web url configured for %s%s", ErrNotFound, PrefixUpload, id)
	}
	base, err := url.Parse(l.cfg.Web.URL)
	if err != nil {
		return "", fmt.Errorf("parsing web url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse("uploads/" + url.PathEscape(id) + "." + f.Extension())
	if err != nil {
		return "", fmt.Errorf("%w: bad upload id %q", ErrNotFound, id)
	}
	return base.ResolveReference(ref).String(), nil
}

func (l *Loader) loadURL(ctx context.Context, raw string, f format.Format, wc *format.WorldContext) (*holder.Multi, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", raw, err)
	}
	if !l.cfg.Trusted(u.Hostname()) {
		l.logger.Warn("refusing untrusted host", zap.String("url", raw))
		return nil, fmt.Errorf("%w: host %q is not trusted", ErrUnauthorized, u.Hostname())
	}

	m, err := l.discoverer.Archive(ctx, raw, f, wc)
	if m == nil {
		return nil, notFound(err)
	}
	if err != nil {
		l.logger.Warn("archive partially loaded",
			zap.String("url", raw),
			zap.Int("holders", m.Len()),
			zap.Error(err),
		)
	}
	return m, err
}

func (l *Loader) loadStore(ctx context.Context, key string, f format.Format, wc *format.WorldContext) (*holder.Multi, error) {
	if l.store == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrNotFound)
	}

	// An exact object wins over a prefix of the same name.
	key = strings.Trim(key, "/")
	dir := path.Dir(key)
	if dir == "." {
		dir = ""
	}
	keys, err := l.store.List(ctx, dir, "")
	if err != nil {
		return nil, err
	}
	for _, candidate := range []string{key, key + "." + f.Extension()} {
		if !slices.Contains(keys, candidate) {
			continue
		}
		m := holder.NewMulti(candidate)
		m.Add(l.lazy(candidate, source.Object{Store: l.store, Key: candidate}, f, wc))
		return m, nil
	}

	m, err := l.discoverer.Bucket(ctx, l.store, key, f, wc)
	return m, notFound(err)
}

func (l *Loader) loadLocal(actor Actor, input string, f format.Format, wc *format.WorldContext) (*holder.Multi, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", ErrNotFound)
	}
	// Absolute paths and any path that climbs above its root, such as ".."
	// or "a/../..", need the permission. Backslashes count as separators on
	// every platform.
	climbs := !filepath.IsLocal(strings.ReplaceAll(input, `\`, "/"))
	mayLeave := actor != nil && actor.HasPermission(PermLoadOther)
	if climbs && !mayLeave {
		return nil, fmt.Errorf("%w: %s required for %q", ErrUnauthorized, PermLoadOther, input)
	}

	var roots []string
	if l.cfg.PerActorDirs && actor != nil {
		roots = append(roots, filepath.Join(l.cfg.SaveDir, actor.UniqueID().String()))
		// Other actors' files are only reachable with the permission or by
		// bare name.
		if !strings.ContainsAny(input, `/\`) || mayLeave {
			roots = append(roots, l.cfg.SaveDir)
		}
	} else {
		roots = append(roots, l.cfg.SaveDir)
	}

	for _, root := range roots {
		base := filepath.Join(root, input)
		candidates := []string{base}
		// "." names the root itself; root+".ext" would be a sibling of it.
		if filepath.Clean(input) != "." {
			candidates = append(candidates, base+"."+f.Extension())
		}
		for _, p := range candidates {
			info, err := os.Stat(p)
			if err != nil {
				continue
			}
			if info.IsDir() {
				m, err := l.discoverer.Directory(p, f, wc)
				return m, notFound(err)
			}
			m := holder.NewMulti(p)
			m.Add(l.lazy(p, source.File(p), f, wc))
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, input)
}

func (l *Loader) lazy(uri string, src source.ByteSource, f format.Format, wc *format.WorldContext) *holder.Lazy {
	return holder.NewLazy(uri, source.Counted(src, l.stats), f, wc,
		holder.WithLogger(l.logger),
		holder.WithStats(l.stats),
	)
}

// notFound maps the not-found errors of lower layers to ErrNotFound.
func notFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, discovery.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
