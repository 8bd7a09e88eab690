package index

import (
	"strconv"
	"strings"
)

// SimilarSongs is the number of precomputed similar-song slots per song.
const SimilarSongs = 3

// Similar is one precomputed similar-song reference.
type Similar struct {
	Artist string  `json:"artist,omitempty"`
	Song   string  `json:"song,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// Song is the catalog metadata attached to one latent vector.
// Songs are shared by reference and must not be modified.
type Song struct {
	Artist      string                `json:"artist"`
	Genre       string                `json:"genre"`
	Title       string                `json:"song"`
	Length      string                `json:"length,omitempty"`
	Album       string                `json:"album,omitempty"`
	ReleaseDate string                `json:"release_date,omitempty"`
	Similar     [SimilarSongs]Similar `json:"similar"`
	Extra       map[string]string     `json:"extra,omitempty"`
}

type songField int

const (
	fieldExtra songField = iota
	fieldArtist
	fieldGenre
	fieldTitle
	fieldLength
	fieldAlbum
	fieldReleaseDate
	fieldSimilarArtist
	fieldSimilarSong
	fieldSimilarScore
)

// metaColumn binds a header column to a Song field.
type metaColumn struct {
	pos   int
	name  string
	field songField
	slot  int // similar-song slot for fieldSimilar*
}

// canonical lower-cases a header name and drops everything but letters and digits,
// so "Artist(s)", "artist_s" and "ARTISTS" compare equal.
func canonical(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var songFields = map[string]songField{
	"artist":      fieldArtist,
	"artists":     fieldArtist,
	"genre":       fieldGenre,
	"song":        fieldTitle,
	"title":       fieldTitle,
	"length":      fieldLength,
	"album":       fieldAlbum,
	"releasedate": fieldReleaseDate,
}

func classifyMeta(pos int, name string) metaColumn {
	c := canonical(name)
	col := metaColumn{pos: pos, name: name}
	if f, ok := songFields[c]; ok {
		col.field = f
		return col
	}
	for _, p := range []struct {
		prefix string
		field  songField
	}{
		{"similarartist", fieldSimilarArtist},
		{"similarsong", fieldSimilarSong},
		{"similarityscore", fieldSimilarScore},
	} {
		rest, ok := strings.CutPrefix(c, p.prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > SimilarSongs {
			break
		}
		col.field = p.field
		col.slot = n - 1
		return col
	}
	col.field = fieldExtra
	return col
}

func (c metaColumn) apply(s *Song, value string) {
	switch c.field {
	case fieldArtist:
		s.Artist = value
	case fieldGenre:
		s.Genre = value
	case fieldTitle:
		s.Title = value
	case fieldLength:
		s.Length = value
	case fieldAlbum:
		s.Album = value
	case fieldReleaseDate:
		s.ReleaseDate = value
	case fieldSimilarArtist:
		s.Similar[c.slot].Artist = value
	case fieldSimilarSong:
		s.Similar[c.slot].Song = value
	case fieldSimilarScore:
		// Auxiliary metadata: an unparseable score is kept verbatim in Extra.
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			s.Similar[c.slot].Score = f
		} else if value != "" {
			c.extra(s, value)
		}
	default:
		c.extra(s, value)
	}
}

func (c metaColumn) extra(s *Song, value string) {
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}
	s.Extra[c.name] = value
}
