package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hupe1980/songrec/blobstore"
)

// Publisher uploads a catalog version and switches CURRENT to it.
type Publisher struct {
	store blobstore.BlobStore
	// Compression is applied to the index when it is not compressed already.
	Compression Compression
}

// NewPublisher creates a Publisher writing to store.
func NewPublisher(store blobstore.BlobStore) *Publisher {
	return &Publisher{store: store}
}

// PublishDir uploads the artifacts named by dir/manifest.json (or the default
// layout when absent) under version/ and commits the uploaded manifest as
// CURRENT. Readers never observe a partially uploaded version because CURRENT
// is written last.
func (p *Publisher) PublishDir(ctx context.Context, dir, version string) (*Manifest, error) {
	if version == "" {
		return nil, errors.New("artifact: empty version")
	}

	src, err := p.sourceManifest(dir)
	if err != nil {
		return nil, err
	}

	out := *src
	out.Version = version
	out.base = ""

	indexName := src.Index.Path
	if c, _ := SplitCompression(indexName); c == CompressionNone && p.Compression != CompressionNone {
		indexName += extension(p.Compression)
	}
	out.Index.Path = indexName

	uploads := []struct{ from, to string }{
		{src.Index.Path, indexName},
		{src.Params, src.Params},
		{src.Dictionaries.Artist, src.Dictionaries.Artist},
		{src.Dictionaries.Genre, src.Dictionaries.Genre},
		{src.Dictionaries.Emotion, src.Dictionaries.Emotion},
	}
	for _, u := range uploads {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(u.from)))
		if err != nil {
			return nil, missing(u.from, err)
		}
		if u.from != u.to {
			if data, err = compress(p.Compression, data); err != nil {
				return nil, err
			}
		}
		if err := p.store.Put(ctx, path.Join(version, u.to), data); err != nil {
			return nil, fmt.Errorf("artifact: uploading %s: %w", u.to, err)
		}
	}

	manifestName := path.Join(version, DefaultManifestName)
	doc, err := Encode(FormatJSON, &out)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, manifestName, doc); err != nil {
		return nil, fmt.Errorf("artifact: uploading manifest: %w", err)
	}
	if err := p.store.Put(ctx, CurrentName, []byte(manifestName)); err != nil {
		return nil, fmt.Errorf("artifact: committing %s: %w", CurrentName, err)
	}

	out.base = version
	return &out, nil
}

func (p *Publisher) sourceManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, DefaultManifestName))
	if os.IsNotExist(err) {
		return DefaultManifest(), nil
	}
	if err != nil {
		return nil, missing(DefaultManifestName, err)
	}
	return ParseManifest(DefaultManifestName, data)
}

func extension(c Compression) string {
	switch c {
	case CompressionZSTD:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

func compress(c Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(c, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCompression maps "none", "zstd" or "lz4" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, fmt.Errorf("artifact: unknown compression %q", s)
	}
}
