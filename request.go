package songrec

import (
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/songrec/embed"
	"github.com/hupe1980/songrec/features"
)

// Request is one recommendation query.
//
// Numeric features accept a JSON number, a boolean (true is 1, false is 0)
// or null. Absent features normalize to 0, as do unknown categorical labels.
type Request struct {
	Artist  string `json:"artist" validate:"max=256"`
	Genre   string `json:"genre" validate:"max=256"`
	Emotion string `json:"emotion" validate:"max=256"`

	Tempo            features.Value `json:"tempo" validate:"omitempty,finite"`
	Popularity       features.Value `json:"popularity" validate:"omitempty,finite"`
	Energy           features.Value `json:"energy" validate:"omitempty,finite"`
	Danceability     features.Value `json:"danceability" validate:"omitempty,finite"`
	Positiveness     features.Value `json:"positiveness" validate:"omitempty,finite"`
	Speechiness      features.Value `json:"speechiness" validate:"omitempty,finite"`
	Liveness         features.Value `json:"liveness" validate:"omitempty,finite"`
	Acousticness     features.Value `json:"acousticness" validate:"omitempty,finite"`
	Instrumentalness features.Value `json:"instrumentalness" validate:"omitempty,finite"`

	GoodForParty                features.Value `json:"good_for_party" validate:"omitempty,finite"`
	GoodForWorkStudy            features.Value `json:"good_for_work_study" validate:"omitempty,finite"`
	GoodForExercise             features.Value `json:"good_for_exercise" validate:"omitempty,finite"`
	GoodForRunning              features.Value `json:"good_for_running" validate:"omitempty,finite"`
	GoodForDriving              features.Value `json:"good_for_driving" validate:"omitempty,finite"`
	GoodForSocialGatherings     features.Value `json:"good_for_social_gatherings" validate:"omitempty,finite"`
	GoodForMorningRoutine       features.Value `json:"good_for_morning_routine" validate:"omitempty,finite"`
	GoodForMeditationStretching features.Value `json:"good_for_meditation_stretching" validate:"omitempty,finite"`

	// K is the maximum number of results. 0 selects the service default.
	K int `json:"n" validate:"min=0,max=100"`

	// Genres restricts candidates to songs of these genres (case-insensitive).
	Genres []string `json:"filter_genres,omitempty" validate:"max=32,dive,max=256"`
}

// Feature returns the value of a numeric feature by its features.Numeric name.
func (r *Request) Feature(name string) features.Value {
	if p := r.field(name); p != nil {
		return *p
	}
	return features.Value{}
}

// SetFeature sets a numeric feature by name and reports whether the name is known.
func (r *Request) SetFeature(name string, v features.Value) bool {
	p := r.field(name)
	if p == nil {
		return false
	}
	*p = v
	return true
}

func (r *Request) field(name string) *features.Value {
	switch name {
	case "tempo":
		return &r.Tempo
	case "popularity":
		return &r.Popularity
	case "energy":
		return &r.Energy
	case "danceability":
		return &r.Danceability
	case "positiveness":
		return &r.Positiveness
	case "speechiness":
		return &r.Speechiness
	case "liveness":
		return &r.Liveness
	case "acousticness":
		return &r.Acousticness
	case "instrumentalness":
		return &r.Instrumentalness
	case "good_for_party":
		return &r.GoodForParty
	case "good_for_work_study":
		return &r.GoodForWorkStudy
	case "good_for_exercise":
		return &r.GoodForExercise
	case "good_for_running":
		return &r.GoodForRunning
	case "good_for_driving":
		return &r.GoodForDriving
	case "good_for_social_gatherings":
		return &r.GoodForSocialGatherings
	case "good_for_morning_routine":
		return &r.GoodForMorningRoutine
	case "good_for_meditation_stretching":
		return &r.GoodForMeditationStretching
	default:
		return nil
	}
}

// Validate checks field constraints. The error is a *ValidationError.
func (r *Request) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return newValidationError(err)
	}
	return nil
}

// Input normalizes and encodes r against a catalog.
func (r *Request) Input(c *Catalog) embed.Input {
	return embed.Input{
		Numeric: features.Vector(c.Params, r.Feature),
		Artist:  c.Dictionaries.Artist.Encode(r.Artist),
		Genre:   c.Dictionaries.Genre.Encode(r.Genre),
		Emotion: c.Dictionaries.Emotion.Encode(r.Emotion),
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		// Validate features.Value as its float, an unset value as absent.
		validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
			if x, ok := v.Interface().(features.Value).Get(); ok {
				return x
			}
			return nil
		}, features.Value{})

		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			if f.Kind() != reflect.Float64 {
				return true
			}
			x := f.Float()
			return !math.IsNaN(x) && !math.IsInf(x, 0)
		})
	})
	return validate
}
