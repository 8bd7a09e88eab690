package artifact

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/songrec/blobstore"
	"github.com/hupe1980/songrec/features"
	"github.com/hupe1980/songrec/index"
)

const sampleCSV = "artist,genre,song,latent_0,latent_1\n" +
	"Queen,rock,Bohemian Rhapsody,1,0\n" +
	"Abba,pop,Dancing Queen,0,1\n"

const sampleParams = `{"tempo": {"min": 60, "max": 200}, "energy": {"min": 0, "max": 100}}`

func putDefaults(t *testing.T, store blobstore.BlobStore, prefix string) {
	t.Helper()
	ctx := context.Background()
	files := map[string]string{
		DefaultIndexName:   sampleCSV,
		DefaultParamsName:  sampleParams,
		DefaultArtistDict:  `{"Queen": 1, "Abba": 2}`,
		DefaultGenreDict:   `{"rock": 1, "pop": 2}`,
		DefaultEmotionDict: `{"joy": 1}`,
	}
	for name, body := range files {
		require.NoError(t, store.Put(ctx, prefix+name, []byte(body)))
	}
}

func mustCompress(t *testing.T, c Compression, s string) []byte {
	t.Helper()
	data, err := compress(c, []byte(s))
	require.NoError(t, err)
	return data
}

func TestSplitCompression(t *testing.T) {
	tests := []struct {
		name  string
		c     Compression
		plain string
	}{
		{"index.csv", CompressionNone, "index.csv"},
		{"index.csv.zst", CompressionZSTD, "index.csv"},
		{"index.csv.ZSTD", CompressionZSTD, "index.csv"},
		{"v1/index.db.lz4", CompressionLZ4, "v1/index.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, plain := SplitCompression(tt.name)
			assert.Equal(t, tt.c, c)
			assert.Equal(t, tt.plain, plain)
		})
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZSTD, CompressionLZ4} {
		data := mustCompress(t, c, sampleCSV)
		rc, err := NewReader(c, bytes.NewReader(data))
		require.NoError(t, err)
		s, err := index.ReadCSV(context.Background(), rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, 2, s.Len())
	}
}

func TestLoadDefaults(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putDefaults(t, store, "")

	b, err := NewLoader(store).LoadCurrent(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "unversioned", b.Manifest.Version)
	assert.Equal(t, 2, b.Index.Len())
	assert.Equal(t, 2, b.Index.Dim())
	assert.Equal(t, features.Range{Min: 60, Max: 200}, b.Params["tempo"])
	assert.Equal(t, 1, b.Dictionaries.Artist.Encode("queen"))
	assert.Equal(t, 2, b.Dictionaries.Genre.Encode("POP"))
	assert.Equal(t, 1, b.Dictionaries.Emotion.Encode("joy"))
}

func TestLoadThroughCurrent(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	manifest := `version: v7
index:
  path: data/index.csv.zst
params: params.yaml
dictionaries:
  artist: dicts/artist.json
  genre: dicts/genre.json
  emotion: dicts/emotion.json.lz4
dimension: 2
`
	require.NoError(t, store.Put(ctx, "v7/manifest.yaml", []byte(manifest)))
	require.NoError(t, store.Put(ctx, "v7/data/index.csv.zst", mustCompress(t, CompressionZSTD, sampleCSV)))
	require.NoError(t, store.Put(ctx, "v7/params.yaml", []byte("tempo:\n  min: 60\n  max: 200\n")))
	require.NoError(t, store.Put(ctx, "v7/dicts/artist.json", []byte(`{"Queen": 1}`)))
	require.NoError(t, store.Put(ctx, "v7/dicts/genre.json", []byte(`{"rock": 1}`)))
	require.NoError(t, store.Put(ctx, "v7/dicts/emotion.json.lz4", mustCompress(t, CompressionLZ4, `{"sad": 3}`)))
	require.NoError(t, store.Put(ctx, CurrentName, []byte("v7/manifest.yaml\n")))

	// A stale root manifest must be ignored once CURRENT exists.
	require.NoError(t, store.Put(ctx, DefaultManifestName, []byte(`{"version":"old"}`)))

	b, err := NewLoader(store).LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v7", b.Manifest.Version)
	assert.Equal(t, 2, b.Index.Len())
	assert.Equal(t, 3, b.Dictionaries.Emotion.Encode("Sad"))
	assert.Equal(t, features.Range{Min: 60, Max: 200}, b.Params["tempo"])
}

func TestLoadDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	putDefaults(t, store, "")

	m := DefaultManifest()
	m.Dimension = 32
	_, err := NewLoader(store).Load(ctx, m)

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindMalformed, aerr.Kind)
}

func TestLoadMissingArtifact(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putDefaults(t, store, "")
	store.Delete(DefaultGenreDict)

	_, err := NewLoader(store).LoadCurrent(context.Background())

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindMissing, aerr.Kind)
	assert.Equal(t, DefaultGenreDict, aerr.Name)
	assert.True(t, IsNotFound(err))
}

func TestLoadMalformedIndex(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	putDefaults(t, store, "")
	require.NoError(t, store.Put(ctx, DefaultIndexName, []byte("song,latent_0\nx,not-a-number\n")))

	_, err := NewLoader(store).LoadCurrent(ctx)

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindMalformed, aerr.Kind)

	var rowErr *index.MalformedRowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Row)
}

func TestLoadMalformedDocuments(t *testing.T) {
	tests := map[string]string{
		"params not an object":  sampleParams[:10],
		"params inverted range": `{"tempo": {"min": 10, "max": 1}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			putDefaults(t, store, "")
			require.NoError(t, store.Put(context.Background(), DefaultParamsName, []byte(body)))

			_, err := NewLoader(store).LoadCurrent(context.Background())
			var aerr *Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, KindMalformed, aerr.Kind)
			assert.Equal(t, DefaultParamsName, aerr.Name)
		})
	}

	t.Run("conflicting dictionary labels", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		putDefaults(t, store, "")
		require.NoError(t, store.Put(context.Background(), DefaultArtistDict, []byte(`{"Queen": 1, "queen": 2}`)))

		_, err := NewLoader(store).LoadCurrent(context.Background())
		var aerr *Error
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, KindMalformed, aerr.Kind)
	})
}

func TestManifestValidation(t *testing.T) {
	_, err := ParseManifest("manifest.json", []byte(`{"version": "v1", "index": {"path": "i.csv"}}`))
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindMalformed, aerr.Kind)
	assert.Contains(t, err.Error(), "params")

	m, err := ParseManifest("v2/manifest.json", []byte(`{
		"version": "v2",
		"index": {"path": "i.csv"},
		"params": "p.json",
		"dictionaries": {"artist": "a.json", "genre": "g.json", "emotion": "e.json"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "v2/i.csv", m.resolve(m.Index.Path))
	assert.Equal(t, "e.json", m.resolve("/e.json"))
}

func writeSQLite(t *testing.T, file string) {
	t.Helper()
	db, err := sql.Open("sqlite", file)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE songs (artist TEXT, song TEXT, latent_0 REAL, latent_1 REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO songs VALUES ('Queen', 'Bohemian Rhapsody', 1, 0), ('Abba', 'Dancing Queen', 0, 1)`)
	require.NoError(t, err)
}

func sqliteManifest() *Manifest {
	m := DefaultManifest()
	m.Index = IndexRef{Path: "index.sqlite", Table: "songs"}
	return m
}

func TestLoadSQLiteLocal(t *testing.T) {
	dir := t.TempDir()
	store := blobstore.NewLocalStore(dir)
	putDefaults(t, store, "")
	writeSQLite(t, filepath.Join(dir, "index.sqlite"))

	b, err := NewLoader(store).Load(context.Background(), sqliteManifest())
	require.NoError(t, err)
	assert.Equal(t, 2, b.Index.Len())
	assert.Equal(t, "Queen", b.Index.Song(0).Artist)
}

func TestLoadSQLiteSpooled(t *testing.T) {
	file := filepath.Join(t.TempDir(), "index.sqlite")
	writeSQLite(t, file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	putDefaults(t, store, "")
	require.NoError(t, store.Put(context.Background(), "index.sqlite", data))

	l := NewLoader(store)
	l.TempDir = t.TempDir()
	b, err := l.Load(context.Background(), sqliteManifest())
	require.NoError(t, err)
	assert.Equal(t, 2, b.Index.Len())

	left, err := os.ReadDir(l.TempDir)
	require.NoError(t, err)
	assert.Empty(t, left, "spooled copy is removed after loading")
}

func TestPublishDir(t *testing.T) {
	src := t.TempDir()
	putDefaults(t, blobstore.NewLocalStore(src), "")

	store := blobstore.NewMemoryStore()
	p := NewPublisher(store)
	p.Compression = CompressionZSTD

	m, err := p.PublishDir(context.Background(), src, "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, DefaultIndexName+".zst", m.Index.Path)

	current, err := blobstore.ReadAll(context.Background(), store, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01/manifest.json", string(current))

	b, err := NewLoader(store).LoadCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01", b.Manifest.Version)
	assert.Equal(t, 2, b.Index.Len())
}

func TestPublishDirMissingFile(t *testing.T) {
	src := t.TempDir()
	putDefaults(t, blobstore.NewLocalStore(src), "")
	require.NoError(t, os.Remove(filepath.Join(src, DefaultParamsName)))

	store := blobstore.NewMemoryStore()
	_, err := NewPublisher(store).PublishDir(context.Background(), src, "v1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = blobstore.ReadAll(context.Background(), store, CurrentName)
	assert.True(t, IsNotFound(err), "CURRENT is untouched on failure")
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}
