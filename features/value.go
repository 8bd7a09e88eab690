package features

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Value is an optional raw numeric feature value.
//
// In JSON a Value may be a number, a boolean (true is 1, false is 0) or null.
// A null or absent field is not set.
type Value struct {
	v   float64
	set bool
}

// Of returns a set Value.
func Of(v float64) Value {
	return Value{v: v, set: true}
}

// Get returns the value and whether it is set.
func (v Value) Get() (float64, bool) {
	return v.v, v.set
}

// IsSet reports whether the value is present.
func (v Value) IsSet() bool { return v.set }

// IsFinite reports whether the value is absent or a finite number.
func (v Value) IsFinite() bool {
	return !v.set || (!math.IsNaN(v.v) && !math.IsInf(v.v, 0))
}

// Ptr returns nil for an absent value.
func (v Value) Ptr() *float64 {
	if !v.set {
		return nil
	}
	f := v.v
	return &f
}

func (v Value) String() string {
	if !v.set {
		return "<none>"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "":
		*v = Value{}
		return nil
	case "true":
		*v = Of(1)
		return nil
	case "false":
		*v = Of(0)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("features: invalid numeric value %s", data)
	}
	*v = Of(f)
	return nil
}
