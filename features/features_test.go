package features

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	p := Params{
		"tempo":    {Min: 60, Max: 180},
		"constant": {Min: 5, Max: 5},
	}

	t.Run("Midpoint", func(t *testing.T) {
		assert.Equal(t, 0.5, p.Normalize("tempo", Of(120)))
		assert.Equal(t, 0.5, Normalize(Of(120), "tempo", p))
	})

	t.Run("Absent", func(t *testing.T) {
		assert.Equal(t, 0.0, p.Normalize("tempo", Value{}))
	})

	t.Run("Unregistered", func(t *testing.T) {
		assert.Equal(t, 0.0, p.Normalize("energy", Of(42)))
	})

	t.Run("ZeroWidth", func(t *testing.T) {
		for _, x := range []float64{-10, 0, 5, 1e9} {
			assert.Equal(t, 0.0, p.Normalize("constant", Of(x)))
		}
	})

	t.Run("LinearAndBounded", func(t *testing.T) {
		prev := -1.0
		for x := 60.0; x <= 180; x += 7.5 {
			got := p.Normalize("tempo", Of(x))
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
			assert.InDelta(t, (x-60)/120, got, 1e-12)
			assert.Greater(t, got, prev)
			prev = got
		}
	})

	t.Run("NotClamped", func(t *testing.T) {
		assert.Equal(t, 1.5, p.Normalize("tempo", Of(240)))
		assert.Equal(t, -0.5, p.Normalize("tempo", Of(0)))
	})
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, Params{"a": {Min: 1, Max: 1}}.Validate())
	assert.Error(t, Params{"a": {Min: 2, Max: 1}}.Validate())
	assert.Error(t, Params{"a": {Min: math.NaN(), Max: 1}}.Validate())
}

func TestEncode(t *testing.T) {
	d, err := NewDictionary(map[string]int{"Drake": 250, "joy": 1})
	require.NoError(t, err)

	t.Run("CaseInsensitive", func(t *testing.T) {
		assert.Equal(t, 250, d.Encode("Drake"))
		assert.Equal(t, 250, d.Encode("drake"))
		assert.Equal(t, 250, Encode("DRAKE", d))
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.Equal(t, Unknown, d.Encode("nobody"))
		assert.Equal(t, Unknown, d.Encode(""))
		assert.Equal(t, Unknown, Dictionary(nil).Encode("drake"))
	})

	t.Run("NoFuzzyMatching", func(t *testing.T) {
		assert.Equal(t, Unknown, d.Encode(" drake"))
		assert.Equal(t, Unknown, d.Encode("drak"))
	})
}

func TestNewDictionary(t *testing.T) {
	_, err := NewDictionary(map[string]int{"a": -1})
	assert.Error(t, err)

	_, err = NewDictionary(map[string]int{"Pop": 1, "pop": 2})
	assert.Error(t, err)

	d, err := NewDictionary(map[string]int{"Pop": 3, "pop": 3})
	require.NoError(t, err)
	assert.Len(t, d, 1)
}

func TestDictionariesField(t *testing.T) {
	ds := Dictionaries{Genre: Dictionary{"hip hop": 4}}
	d, ok := ds.Field(FieldGenre)
	require.True(t, ok)
	assert.Equal(t, 4, d.Encode("Hip Hop"))

	_, ok = ds.Field("mood")
	assert.False(t, ok)
}

func TestVector(t *testing.T) {
	p := Params{"tempo": {Min: 60, Max: 180}, "energy": {Min: 0, Max: 100}}
	raw := map[string]Value{"tempo": Of(120), "energy": Of(70)}

	v := Vector(p, func(name string) Value { return raw[name] })
	require.Len(t, v, len(Numeric))
	assert.Equal(t, float32(0.5), v[0])
	assert.Equal(t, float32(0), v[1]) // popularity absent
	assert.InDelta(t, 0.7, v[2], 1e-6)
}

func TestValueJSON(t *testing.T) {
	var got struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
		D Value `json:"d"`
		E Value `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1.5, "b": true, "c": false, "d": null}`), &got))

	x, ok := got.A.Get()
	assert.True(t, ok)
	assert.Equal(t, 1.5, x)
	assert.Equal(t, Of(1), got.B)
	assert.Equal(t, Of(0), got.C)
	assert.False(t, got.D.IsSet())
	assert.False(t, got.E.IsSet())
	assert.Nil(t, got.E.Ptr())

	out, err := json.Marshal(got.A)
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a": "fast"}`), &got))
}
