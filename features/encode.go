package features

import (
	"fmt"
	"strings"
)

// Unknown is the id reserved for absent or unrecognized labels.
const Unknown = 0

// Dictionary maps lower-cased labels to integer ids.
type Dictionary map[string]int

// NewDictionary builds a Dictionary from raw label ids, lower-casing the labels.
// Labels that collide after lower-casing must carry the same id.
func NewDictionary(raw map[string]int) (Dictionary, error) {
	d := make(Dictionary, len(raw))
	for label, id := range raw {
		if id < 0 {
			return nil, fmt.Errorf("features: negative id %d for label %q", id, label)
		}
		key := strings.ToLower(label)
		if prev, ok := d[key]; ok && prev != id {
			return nil, fmt.Errorf("features: label %q maps to both %d and %d", key, prev, id)
		}
		d[key] = id
	}
	return d, nil
}

// Encode returns the id of label, matching case-insensitively.
func (d Dictionary) Encode(label string) int {
	if label == "" {
		return Unknown
	}
	if id, ok := d[strings.ToLower(label)]; ok {
		return id
	}
	return Unknown
}

// Encode is the free-function form of Dictionary.Encode.
func Encode(label string, d Dictionary) int {
	return d.Encode(label)
}

// Dictionaries bundles the dictionary of every categorical field.
type Dictionaries struct {
	Artist  Dictionary
	Genre   Dictionary
	Emotion Dictionary
}

// Field returns the dictionary for a categorical field name.
func (d Dictionaries) Field(name string) (Dictionary, bool) {
	switch name {
	case FieldArtist:
		return d.Artist, true
	case FieldGenre:
		return d.Genre, true
	case FieldEmotion:
		return d.Emotion, true
	default:
		return nil, false
	}
}
