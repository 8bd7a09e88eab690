package embed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/songrec/internal/resource"
)

var sampleInput = Input{Numeric: []float32{0.5, 0, 1}, Artist: 3, Genre: 1, Emotion: 0}

func TestInputKey(t *testing.T) {
	a := sampleInput
	b := sampleInput
	b.Numeric = []float32{0.5, 0, 1}
	assert.Equal(t, a.Key(), b.Key())

	b.Genre = 2
	assert.NotEqual(t, a.Key(), b.Key())

	c := Input{Numeric: []float32{0.5, 0}, Artist: 1}
	d := Input{Numeric: []float32{0.5, 0, 0}, Artist: 1}
	assert.NotEqual(t, c.Key(), d.Key())
}

func TestHTTPGenerator(t *testing.T) {
	var got struct {
		Inputs map[string]json.RawMessage `json:"inputs"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/models/songs/versions/2:predict", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"outputs": [[0.1, 0.2, 0.3]]}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL+"/", WithModel("songs"), WithModelVersion("2"), WithHeader("X-Api-Key", "secret"))
	vec, err := g.Generate(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	assert.JSONEq(t, `[[0.5, 0, 1]]`, string(got.Inputs[InputNumerical]))
	assert.JSONEq(t, `[[3]]`, string(got.Inputs[InputArtist]))
	assert.JSONEq(t, `[[1]]`, string(got.Inputs[InputGenre]))
	assert.JSONEq(t, `[[0]]`, string(got.Inputs[InputEmotion]))
}

func TestHTTPGeneratorNamedOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"outputs": {"latent": [[1, 2]], "aux": [[9]]}}`))
	}))
	defer srv.Close()

	vec, err := NewHTTPGenerator(srv.URL, WithOutputName("latent")).Generate(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)

	_, err = NewHTTPGenerator(srv.URL).Generate(context.Background(), sampleInput)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 outputs")
}

func TestHTTPGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
		empty  bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", code: 500},
		{name: "model error", status: http.StatusOK, body: `{"error": "bad input"}`, code: 200},
		{name: "empty outputs", status: http.StatusOK, body: `{"outputs": []}`, code: 200, empty: true},
		{name: "missing outputs", status: http.StatusOK, body: `{}`, code: 200, empty: true},
		{name: "not json", status: http.StatusOK, body: `<html>`, code: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPGenerator(srv.URL).Generate(context.Background(), sampleInput)
			var eerr *Error
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, tt.code, eerr.StatusCode)
			if tt.empty {
				assert.ErrorIs(t, err, ErrEmptyOutput)
			}
		})
	}
}

func TestHTTPGeneratorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPGenerator(url, WithTimeout(time.Second)).Generate(context.Background(), sampleInput)
	var eerr *Error
	require.ErrorAs(t, err, &eerr)
	assert.Zero(t, eerr.StatusCode)
	assert.True(t, eerr.Temporary())
}

func TestBreaker(t *testing.T) {
	var calls atomic.Int32
	failing := Func(func(context.Context, Input) ([]float32, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})

	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	b := NewBreakerWithConfig(failing, cfg)

	for range 2 {
		_, err := b.Generate(context.Background(), sampleInput)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBreakerOpen)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Generate(context.Background(), sampleInput)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, int32(2), calls.Load(), "open breaker does not call the generator")
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	canceled := Func(func(ctx context.Context, _ Input) ([]float32, error) {
		return nil, ctx.Err()
	})
	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 1
	b := NewBreakerWithConfig(canceled, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := b.Generate(ctx, sampleInput)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	slow := Func(func(_ context.Context, in Input) ([]float32, error) {
		calls.Add(1)
		<-release
		return []float32{float32(in.Artist), 1}, nil
	})
	c := NewCached(slow, 8, nil)

	var wg sync.WaitGroup
	results := make([][]float32, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := c.Generate(context.Background(), sampleInput)
			assert.NoError(t, err)
			results[i] = vec
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []float32{3, 1}, r)
	}
	assert.Equal(t, int32(1), calls.Load())

	// Callers get private copies.
	results[0][0] = 42
	vec, err := c.Generate(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, vec)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedLeaderCancellation(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	gen := Func(func(ctx context.Context, in Input) ([]float32, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return []float32{float32(in.Artist)}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	c := NewCached(gen, 8, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Generate(leaderCtx, sampleInput)
		leaderErr <- err
	}()
	<-started

	type result struct {
		vec []float32
		err error
	}
	follower := make(chan result, 1)
	go func() {
		vec, err := c.Generate(context.Background(), sampleInput)
		follower <- result{vec, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	res := <-follower
	require.NoError(t, res.err)
	assert.Equal(t, []float32{3}, res.vec)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedSkipsFailures(t *testing.T) {
	var calls atomic.Int32
	flaky := Func(func(context.Context, Input) ([]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return []float32{1}, nil
	})
	c := NewCached(flaky, 8, nil)

	_, err := c.Generate(context.Background(), sampleInput)
	require.Error(t, err)
	vec, err := c.Generate(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedMemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 4})
	gen := Func(func(context.Context, Input) ([]float32, error) {
		return []float32{1, 2}, nil
	})
	c := NewCached(gen, 8, rc)

	_, err := c.Generate(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Zero(t, c.Len(), "vector larger than the budget is not cached")
}
