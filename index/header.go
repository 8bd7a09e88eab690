package index

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// VectorColumnPrefix names the latent vector columns: latent_0, latent_1, ...
const VectorColumnPrefix = "latent_"

var rowIndexColumn = regexp.MustCompile(`^unnamed\d*$`)

// Header is a parsed header row.
type Header struct {
	width   int
	vecPos  []int // vecPos[d] is the column position of dimension d
	meta    []metaColumn
	columns []string
}

// ParseHeader classifies the columns of a header row.
//
// Vector columns are ordered by their ordinal suffix, not by position, and must
// cover 0..D-1 without gaps. Empty-named columns and dataframe row-index
// columns ("Unnamed: 0") are ignored.
func ParseHeader(columns []string) (*Header, error) {
	h := &Header{width: len(columns), columns: columns}

	ordinals := make(map[int]int)
	seen := make(map[string]bool, len(columns))

	for pos, raw := range columns {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if name == "" || rowIndexColumn.MatchString(canonical(name)) {
			continue
		}
		if seen[name] {
			return nil, &HeaderError{Column: name, Reason: "duplicate column"}
		}
		seen[name] = true

		if suffix, ok := cutVectorPrefix(name); ok {
			d, err := strconv.Atoi(suffix)
			if err != nil || d < 0 {
				return nil, &HeaderError{Column: name, Reason: "vector column ordinal is not a non-negative integer"}
			}
			if _, dup := ordinals[d]; dup {
				return nil, &HeaderError{Column: name, Reason: "duplicate vector dimension"}
			}
			ordinals[d] = pos
			continue
		}
		h.meta = append(h.meta, classifyMeta(pos, name))
	}

	if len(ordinals) == 0 {
		return nil, ErrNoVectorColumns
	}
	// Ordinals are distinct, so any gap shows up below len(ordinals). Sizing by
	// the count keeps a corrupt ordinal from driving the allocation.
	h.vecPos = make([]int, len(ordinals))
	for d := range h.vecPos {
		pos, ok := ordinals[d]
		if !ok {
			return nil, &HeaderError{
				Column: fmt.Sprintf("%s%d", VectorColumnPrefix, d),
				Reason: "missing vector dimension",
			}
		}
		h.vecPos[d] = pos
	}
	return h, nil
}

func cutVectorPrefix(name string) (string, bool) {
	if len(name) <= len(VectorColumnPrefix) || !strings.EqualFold(name[:len(VectorColumnPrefix)], VectorColumnPrefix) {
		return "", false
	}
	return name[len(VectorColumnPrefix):], true
}

// Dim returns the vector dimension described by the header.
func (h *Header) Dim() int { return len(h.vecPos) }

// Width returns the number of columns every data row must have.
func (h *Header) Width() int { return h.width }

// MetadataColumns returns the names of the metadata columns in header order.
func (h *Header) MetadataColumns() []string {
	out := make([]string, len(h.meta))
	for i, c := range h.meta {
		out[i] = c.name
	}
	return out
}

// parseRow decodes one data row. row is the 1-based data row number.
func (h *Header) parseRow(row int, fields []string, vec []float32) (*Song, error) {
	if len(fields) != h.width {
		return nil, &MalformedRowError{
			Row:   row,
			cause: fmt.Errorf("expected %d fields, got %d", h.width, len(fields)),
		}
	}
	for d, pos := range h.vecPos {
		raw := strings.TrimSpace(fields[pos])
		f, err := strconv.ParseFloat(raw, 32)
		if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			err = errNonFinite
		}
		if err != nil {
			return nil, &MalformedRowError{Row: row, Column: h.columns[pos], Value: fields[pos], cause: err}
		}
		vec[d] = float32(f)
	}

	s := &Song{}
	for _, c := range h.meta {
		c.apply(s, fields[c.pos])
	}
	return s, nil
}
