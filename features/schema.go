package features

// Numeric lists the numeric features in trained order.
var Numeric = []string{
	"tempo",
	"popularity",
	"energy",
	"danceability",
	"positiveness",
	"speechiness",
	"liveness",
	"acousticness",
	"instrumentalness",
	"good_for_party",
	"good_for_work_study",
	"good_for_exercise",
	"good_for_running",
	"good_for_driving",
	"good_for_social_gatherings",
	"good_for_morning_routine",
	"good_for_meditation_stretching",
}

// Categorical field names.
const (
	FieldArtist  = "artist"
	FieldGenre   = "genre"
	FieldEmotion = "emotion"
)

// Categorical lists the categorical fields in generator input order.
var Categorical = []string{FieldArtist, FieldGenre, FieldEmotion}

// Lookup returns the raw value of a numeric feature by name.
type Lookup func(name string) Value

// Vector normalizes every feature in Numeric, in order, using p.
func Vector(p Params, lookup Lookup) []float32 {
	out := make([]float32, len(Numeric))
	for i, name := range Numeric {
		out[i] = float32(p.Normalize(name, lookup(name)))
	}
	return out
}
