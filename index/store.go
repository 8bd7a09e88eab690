package index

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/songrec/distance"
)

// Entry is one (vector, song) pair of a Store.
type Entry struct {
	Row    uint32
	Vector []float32
	Song   *Song
}

// Stats summarizes a built Store.
type Stats struct {
	Entries    int // distinct vectors
	Rows       int // data rows read, including collapsed duplicates
	Duplicates int // rows whose vector repeated an earlier row
	Dimension  int
	Genres     int
	Artists    int
}

// Store is an immutable set of latent vectors with their songs.
//
// Row ids are dense, 0-based and follow first appearance in the source.
type Store struct {
	dim     int
	vectors []float32 // row-major, len == Len()*dim
	norms   []float32
	songs   []*Song
	genres  map[string]*roaring.Bitmap
	artists map[string]*roaring.Bitmap
	stats   Stats
}

// Len returns the number of entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.songs)
}

// Dim returns the vector dimension declared by the source header.
func (s *Store) Dim() int { return s.dim }

// Matrix returns the row-major vector matrix. It must not be modified.
func (s *Store) Matrix() []float32 { return s.vectors }

// Norms returns the precomputed L2 norm of every row. It must not be modified.
func (s *Store) Norms() []float32 { return s.norms }

// Vector returns the vector of a row. It must not be modified.
func (s *Store) Vector(row uint32) []float32 {
	off := int(row) * s.dim
	return s.vectors[off : off+s.dim : off+s.dim]
}

// Song returns the metadata of a row.
func (s *Store) Song(row uint32) *Song { return s.songs[row] }

// Entry returns the entry of a row.
func (s *Store) Entry(row uint32) Entry {
	return Entry{Row: row, Vector: s.Vector(row), Song: s.songs[row]}
}

// All iterates over all entries in row order.
func (s *Store) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for row := range s.songs {
			if !yield(s.Entry(uint32(row))) {
				return
			}
		}
	}
}

// Lookup returns the song stored for an exact vector.
func (s *Store) Lookup(vec []float32) (*Song, bool) {
	if len(vec) != s.dim {
		return nil, false
	}
	for row := range s.songs {
		if slices.Equal(s.Vector(uint32(row)), vec) {
			return s.songs[row], true
		}
	}
	return nil, false
}

// Stats returns load statistics.
func (s *Store) Stats() Stats { return s.stats }

// Genres returns the distinct lower-cased genres, sorted.
func (s *Store) Genres() []string {
	out := make([]string, 0, len(s.genres))
	for g := range s.genres {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// GenreFilter returns the rows whose genre matches any of genres,
// case-insensitively. Unknown genres contribute nothing, so the result may be
// empty.
func (s *Store) GenreFilter(genres ...string) *roaring.Bitmap {
	return union(s.genres, genres)
}

// ArtistFilter returns the rows by any of artists, case-insensitively.
func (s *Store) ArtistFilter(artists ...string) *roaring.Bitmap {
	return union(s.artists, artists)
}

func union(postings map[string]*roaring.Bitmap, keys []string) *roaring.Bitmap {
	bms := make([]*roaring.Bitmap, 0, len(keys))
	for _, k := range keys {
		if bm, ok := postings[strings.ToLower(strings.TrimSpace(k))]; ok {
			bms = append(bms, bm)
		}
	}
	if len(bms) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(bms...)
}

// Builder accumulates rows into a Store.
// A Builder is not safe for concurrent use.
type Builder struct {
	header  *Header
	rows    int
	byKey   map[string]uint32
	vectors []float32
	songs   []*Song
	scratch []float32
	key     []byte
}

// NewBuilder creates a Builder for rows laid out as described by header.
func NewBuilder(header *Header) *Builder {
	return &Builder{
		header:  header,
		byKey:   make(map[string]uint32),
		scratch: make([]float32, header.Dim()),
		key:     make([]byte, 4*header.Dim()),
	}
}

// Add decodes one data row. Identical vectors collapse into one entry and the
// last row wins, so the store stays a mapping from vector to song.
func (b *Builder) Add(fields []string) error {
	b.rows++
	song, err := b.header.parseRow(b.rows, fields, b.scratch)
	if err != nil {
		return err
	}

	b.insert(b.scratch, song)
	return nil
}

func (b *Builder) insert(vec []float32, song *Song) {
	for i, f := range vec {
		binary.LittleEndian.PutUint32(b.key[4*i:], math.Float32bits(f))
	}
	if row, ok := b.byKey[string(b.key)]; ok {
		b.songs[row] = song
		return
	}
	b.byKey[string(b.key)] = uint32(len(b.songs))
	b.vectors = append(b.vectors, vec...)
	b.songs = append(b.songs, song)
}

// Build finalizes the Store. The Builder must not be used afterwards.
func (b *Builder) Build() *Store {
	dim := b.header.Dim()
	s := &Store{
		dim:     dim,
		vectors: slices.Clip(b.vectors),
		norms:   make([]float32, len(b.songs)),
		songs:   slices.Clip(b.songs),
		genres:  make(map[string]*roaring.Bitmap),
		artists: make(map[string]*roaring.Bitmap),
	}
	distance.NormBatch(s.vectors, dim, s.norms)

	for row, song := range s.songs {
		post(s.genres, song.Genre, uint32(row))
		post(s.artists, song.Artist, uint32(row))
	}
	for _, m := range []map[string]*roaring.Bitmap{s.genres, s.artists} {
		for _, bm := range m {
			bm.RunOptimize()
		}
	}

	s.stats = Stats{
		Entries:    len(s.songs),
		Rows:       b.rows,
		Duplicates: b.rows - len(s.songs),
		Dimension:  dim,
		Genres:     len(s.genres),
		Artists:    len(s.artists),
	}
	b.byKey = nil
	return s
}

func post(m map[string]*roaring.Bitmap, key string, row uint32) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	bm.Add(row)
}

// FromEntries builds a Store directly from vectors and songs.
// Every vector must have the same non-zero dimension. No entries yield an
// empty Store of dimension 0, which accepts queries of any dimension.
func FromEntries(vectors [][]float32, songs []*Song) (*Store, error) {
	if len(vectors) != len(songs) {
		return nil, fmt.Errorf("index: %d vectors but %d songs", len(vectors), len(songs))
	}
	if len(vectors) == 0 {
		return new(Store), nil
	}
	dim := len(vectors[0])
	cols := make([]string, dim)
	for d := range cols {
		cols[d] = VectorColumnPrefix + strconv.Itoa(d)
	}
	h, err := ParseHeader(cols)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(h)
	for i, v := range vectors {
		b.rows++
		if len(v) != dim {
			return nil, &MalformedRowError{Row: b.rows, cause: fmt.Errorf("expected %d dimensions, got %d", dim, len(v))}
		}
		if !distance.IsFinite(v) {
			return nil, &MalformedRowError{Row: b.rows, cause: errNonFinite}
		}
		song := songs[i]
		if song == nil {
			song = &Song{}
		}
		b.insert(v, song)
	}
	return b.Build(), nil
}
