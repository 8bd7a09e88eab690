package artifact

import (
	"fmt"
	"path"
	"strings"

	"github.com/hupe1980/songrec/features"
)

// Default artifact names, relative to the store root.
const (
	CurrentName         = "CURRENT"
	DefaultManifestName = "manifest.json"
	DefaultIndexName    = "latent-space-lookup.csv"
	DefaultParamsName   = "normalization-params.json"
	DefaultArtistDict   = "dictionaries/artist.json"
	DefaultGenreDict    = "dictionaries/genre.json"
	DefaultEmotionDict  = "dictionaries/emotion.json"
	DefaultSQLiteTable  = "songs"
)

// IndexRef locates the latent index.
type IndexRef struct {
	Path string `json:"path" yaml:"path"`
	// Table is the SQLite table holding the index. Ignored for CSV.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
}

// DictionaryRefs locates the categorical dictionaries.
type DictionaryRefs struct {
	Artist  string `json:"artist" yaml:"artist"`
	Genre   string `json:"genre" yaml:"genre"`
	Emotion string `json:"emotion" yaml:"emotion"`
}

// Manifest names the artifacts of one catalog version.
// Paths are relative to the directory holding the manifest.
type Manifest struct {
	Version      string         `json:"version" yaml:"version"`
	Index        IndexRef       `json:"index" yaml:"index"`
	Params       string         `json:"params" yaml:"params"`
	Dictionaries DictionaryRefs `json:"dictionaries" yaml:"dictionaries"`
	// Dimension, when set, must match the index header.
	Dimension int `json:"dimension,omitempty" yaml:"dimension,omitempty"`

	base string
}

// DefaultManifest returns the manifest used when a store has neither a
// CURRENT pointer nor a manifest.
func DefaultManifest() *Manifest {
	return &Manifest{
		Version: "unversioned",
		Index:   IndexRef{Path: DefaultIndexName, Table: DefaultSQLiteTable},
		Params:  DefaultParamsName,
		Dictionaries: DictionaryRefs{
			Artist:  DefaultArtistDict,
			Genre:   DefaultGenreDict,
			Emotion: DefaultEmotionDict,
		},
	}
}

// ParseManifest decodes a manifest stored under name.
func ParseManifest(name string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := Decode(DocumentFormat(name), data, &m); err != nil {
		return nil, malformed(name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, malformed(name, err)
	}
	m.base = path.Dir(name)
	return &m, nil
}

// Validate checks that every artifact is named.
func (m *Manifest) Validate() error {
	var missing []string
	for field, v := range map[string]string{
		"index.path":           m.Index.Path,
		"params":               m.Params,
		"dictionaries.artist":  m.Dictionaries.Artist,
		"dictionaries.genre":   m.Dictionaries.Genre,
		"dictionaries.emotion": m.Dictionaries.Emotion,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifest is missing %s", strings.Join(missing, ", "))
	}
	if m.Dimension < 0 {
		return fmt.Errorf("manifest dimension %d is negative", m.Dimension)
	}
	return nil
}

// resolve returns the store name of a manifest-relative path.
func (m *Manifest) resolve(p string) string {
	if m.base == "" || m.base == "." || path.IsAbs(p) {
		return strings.TrimPrefix(p, "/")
	}
	return path.Join(m.base, p)
}

// dictionaries returns (field, name) pairs in a fixed order.
func (m *Manifest) dictionaries() [][2]string {
	return [][2]string{
		{features.FieldArtist, m.resolve(m.Dictionaries.Artist)},
		{features.FieldGenre, m.resolve(m.Dictionaries.Genre)},
		{features.FieldEmotion, m.resolve(m.Dictionaries.Emotion)},
	}
}
