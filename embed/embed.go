// Package embed maps encoded user preferences into the latent space.
//
// The trained generator is opaque: a Generator receives the normalized numeric
// features plus the categorical ids and returns one latent vector. Generators
// compose, so a production setup typically looks like
//
//	gen := embed.NewCached(embed.NewBreaker(embed.NewHTTPGenerator(url)), 4096, rc)
package embed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Input is the feature vector fed to a Generator.
type Input struct {
	// Numeric holds the normalized features in features.Numeric order.
	Numeric []float32
	Artist  int
	Genre   int
	Emotion int
}

// Key returns a compact binary identity of in, usable as a cache key.
func (in Input) Key() string {
	buf := make([]byte, 0, 4*len(in.Numeric)+24)
	for _, f := range in.Numeric {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	for _, id := range [...]int{in.Artist, in.Genre, in.Emotion} {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(id))
	}
	return string(buf)
}

// Generator produces a latent vector for an Input.
type Generator interface {
	Generate(ctx context.Context, in Input) ([]float32, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, in Input) ([]float32, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, in Input) ([]float32, error) {
	return f(ctx, in)
}

// ErrEmptyOutput is returned when a generator produces no vector.
var ErrEmptyOutput = errors.New("embed: generator returned an empty vector")

// Error reports a failed generator call.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type Error struct {
	Op         string
	StatusCode int // HTTP status, 0 when the call never got a response
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embed: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("embed: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether retrying the call later may succeed.
func (e *Error) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
