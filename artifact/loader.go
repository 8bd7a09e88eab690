package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/songrec/blobstore"
	"github.com/hupe1980/songrec/features"
	"github.com/hupe1980/songrec/index"
)

// Bundle is a fully loaded catalog version.
type Bundle struct {
	Manifest     *Manifest
	Params       features.Params
	Dictionaries features.Dictionaries
	Index        *index.Store
}

// Loader reads artifacts from a blob store.
type Loader struct {
	store blobstore.BlobStore
	// TempDir receives SQLite indexes fetched from non-local stores.
	TempDir string
}

// NewLoader creates a Loader reading from store.
func NewLoader(store blobstore.BlobStore) *Loader {
	return &Loader{store: store}
}

// Store returns the underlying blob store.
func (l *Loader) Store() blobstore.BlobStore { return l.store }

// Manifest resolves the manifest to load.
//
// The CURRENT blob, when present, holds the name of the manifest. Otherwise
// manifest.json (or manifest.yaml) at the store root is used, and a store
// with neither falls back to DefaultManifest.
func (l *Loader) Manifest(ctx context.Context) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, l.store, CurrentName)
	switch {
	case err == nil:
		name := strings.TrimSpace(string(data))
		if name == "" {
			return nil, malformed(CurrentName, errors.New("empty pointer"))
		}
		return l.ReadManifest(ctx, name)
	case !IsNotFound(err):
		return nil, missing(CurrentName, err)
	}

	for _, name := range []string{DefaultManifestName, "manifest.yaml"} {
		m, err := l.ReadManifest(ctx, name)
		if err == nil {
			return m, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return DefaultManifest(), nil
}

// ReadManifest reads and parses the manifest stored under name.
func (l *Loader) ReadManifest(ctx context.Context, name string) (*Manifest, error) {
	data, err := l.read(ctx, name)
	if err != nil {
		return nil, err
	}
	_, plain := SplitCompression(name)
	m, err := ParseManifest(plain, data)
	if err != nil {
		return nil, err
	}
	m.base = path.Dir(name)
	return m, nil
}

// LoadCurrent resolves the manifest and loads everything it names.
func (l *Loader) LoadCurrent(ctx context.Context) (*Bundle, error) {
	m, err := l.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, m)
}

// Load fetches and decodes all artifacts of m concurrently. The first failure
// cancels the remaining fetches.
func (l *Loader) Load(ctx context.Context, m *Manifest) (*Bundle, error) {
	if err := m.Validate(); err != nil {
		return nil, malformed("manifest", err)
	}

	b := &Bundle{Manifest: m}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := l.Params(ctx, m.resolve(m.Params))
		b.Params = p
		return err
	})

	dicts := make([]features.Dictionary, len(features.Categorical))
	for i, ref := range m.dictionaries() {
		g.Go(func() error {
			d, err := l.Dictionary(ctx, ref[1])
			dicts[i] = d
			return err
		})
	}

	g.Go(func() error {
		s, err := l.Index(ctx, m.resolve(m.Index.Path), m.Index.Table)
		if err != nil {
			return err
		}
		if m.Dimension > 0 && s.Dim() != m.Dimension {
			return malformed(m.Index.Path, fmt.Errorf("dimension %d, manifest declares %d", s.Dim(), m.Dimension))
		}
		b.Index = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.Dictionaries = features.Dictionaries{Artist: dicts[0], Genre: dicts[1], Emotion: dicts[2]}
	return b, nil
}

// Params reads a normalization parameter document.
func (l *Loader) Params(ctx context.Context, name string) (features.Params, error) {
	var p features.Params
	if err := l.decode(ctx, name, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, malformed(name, err)
	}
	return p, nil
}

// Dictionary reads a categorical dictionary document.
func (l *Loader) Dictionary(ctx context.Context, name string) (features.Dictionary, error) {
	var raw map[string]int
	if err := l.decode(ctx, name, &raw); err != nil {
		return nil, err
	}
	d, err := features.NewDictionary(raw)
	if err != nil {
		return nil, malformed(name, err)
	}
	return d, nil
}

// Index reads the latent index. Names ending in .db, .sqlite or .sqlite3
// are SQLite databases holding the index in table; anything else is CSV.
// Either may carry a .zst or .lz4 suffix.
func (l *Loader) Index(ctx context.Context, name, table string) (*index.Store, error) {
	c, plain := SplitCompression(name)
	if isSQLite(plain) {
		return l.sqliteIndex(ctx, name, c, table)
	}

	rc, err := l.open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	s, err := index.ReadCSV(ctx, rc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, malformed(name, err)
	}
	return s, nil
}

func isSQLite(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

type localPather interface {
	LocalPath(name string) string
}

func (l *Loader) sqliteIndex(ctx context.Context, name string, c Compression, table string) (*index.Store, error) {
	if table == "" {
		table = DefaultSQLiteTable
	}

	file := ""
	if lp, ok := l.store.(localPather); ok && c == CompressionNone {
		file = lp.LocalPath(name)
		if _, err := os.Stat(file); err != nil {
			return nil, missing(name, err)
		}
	} else {
		tmp, err := l.spool(ctx, name)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		file = tmp
	}

	s, err := index.ReadSQLite(ctx, file, table)
	if err != nil {
		return nil, malformed(name, err)
	}
	return s, nil
}

// spool copies a decompressed blob into a temporary file.
func (l *Loader) spool(ctx context.Context, name string) (string, error) {
	rc, err := l.open(ctx, name)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.CreateTemp(l.TempDir, "songrec-index-*.db")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", malformed(name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// open returns a decompressing stream over a blob.
func (l *Loader) open(ctx context.Context, name string) (io.ReadCloser, error) {
	c, _ := SplitCompression(name)
	raw, err := blobstore.OpenReader(ctx, l.store, name)
	if err != nil {
		return nil, missing(name, err)
	}
	rc, err := NewReader(c, raw)
	if err != nil {
		raw.Close()
		return nil, malformed(name, err)
	}
	return &stackedCloser{ReadCloser: rc, under: raw}, nil
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := l.open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, malformed(name, err)
	}
	return data, nil
}

func (l *Loader) decode(ctx context.Context, name string, v any) error {
	data, err := l.read(ctx, name)
	if err != nil {
		return err
	}
	_, plain := SplitCompression(name)
	if err := Decode(DocumentFormat(plain), data, v); err != nil {
		return malformed(name, err)
	}
	return nil
}

type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedCloser) Close() error {
	err := s.ReadCloser.Close()
	if uerr := s.under.Close(); err == nil {
		err = uerr
	}
	return err
}
