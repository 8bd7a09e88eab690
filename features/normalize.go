package features

import (
	"fmt"
	"math"
)

// Range holds the training-set bounds of one numeric feature.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Params maps a feature name to its Range.
type Params map[string]Range

// Validate checks that every range is finite and Min <= Max.
func (p Params) Validate() error {
	for name, r := range p {
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
			return fmt.Errorf("features: non-finite range for %q", name)
		}
		if r.Min > r.Max {
			return fmt.Errorf("features: min %g > max %g for %q", r.Min, r.Max, name)
		}
	}
	return nil
}

// Normalize scales v into the registered range of the named feature.
//
// It returns 0 for an absent value, an unregistered feature or a zero-width
// range. The result is not clamped: inputs outside [min, max] map outside [0, 1].
func (p Params) Normalize(name string, v Value) float64 {
	x, ok := v.Get()
	if !ok {
		return 0
	}
	r, ok := p[name]
	if !ok {
		return 0
	}
	if r.Max == r.Min {
		return 0
	}
	return (x - r.Min) / (r.Max - r.Min)
}

// Normalize is the free-function form of Params.Normalize.
func Normalize(v Value, name string, p Params) float64 {
	return p.Normalize(name, v)
}
