package embed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Input tensor names of the exported generator model.
const (
	InputNumerical = "numerical_input"
	InputArtist    = "artist_input"
	InputGenre     = "genre_input"
	InputEmotion   = "emotion_input"
)

const (
	defaultModel   = "generator"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// HTTPGenerator calls a model server speaking the TensorFlow Serving REST
// predict API: POST {base}/v1/models/{model}[/versions/{n}]:predict.
type HTTPGenerator struct {
	baseURL string
	model   string
	version string
	output  string
	headers http.Header
	client  *http.Client
}

// HTTPOption configures an HTTPGenerator.
type HTTPOption func(*HTTPGenerator)

// WithModel sets the served model name. Default "generator".
func WithModel(name string) HTTPOption {
	return func(g *HTTPGenerator) { g.model = name }
}

// WithModelVersion pins a model version.
func WithModelVersion(version string) HTTPOption {
	return func(g *HTTPGenerator) { g.version = version }
}

// WithOutputName selects one named output when the model has several.
func WithOutputName(name string) HTTPOption {
	return func(g *HTTPGenerator) { g.output = name }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGenerator) { g.client = c }
}

// WithTimeout sets the per-call timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(g *HTTPGenerator) { g.client.Timeout = d }
}

// WithHeader adds a header to every call, e.g. for authentication.
func WithHeader(key, value string) HTTPOption {
	return func(g *HTTPGenerator) { g.headers.Add(key, value) }
}

// NewHTTPGenerator creates a generator for the model server at baseURL.
func NewHTTPGenerator(baseURL string, opts ...HTTPOption) *HTTPGenerator {
	g := &HTTPGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   defaultModel,
		headers: make(http.Header),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// URL returns the predict endpoint.
func (g *HTTPGenerator) URL() string {
	u := g.baseURL + "/v1/models/" + g.model
	if g.version != "" {
		u += "/versions/" + g.version
	}
	return u + ":predict"
}

type predictRequest struct {
	Inputs map[string]any `json:"inputs"`
}

type predictResponse struct {
	Outputs json.RawMessage `json:"outputs"`
	Error   string          `json:"error,omitempty"`
}

// Generate implements Generator with a batch of one.
func (g *HTTPGenerator) Generate(ctx context.Context, in Input) ([]float32, error) {
	body, err := json.Marshal(predictRequest{Inputs: map[string]any{
		InputNumerical: [][]float32{in.Numeric},
		InputArtist:    [][]int{{in.Artist}},
		InputGenre:     [][]int{{in.Genre}},
		InputEmotion:   [][]int{{in.Emotion}},
	}})
	if err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "predict", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range g.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &Error{Op: "predict", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Op: "predict", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", bytes.TrimSpace(msg))}
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, &Error{Op: "decode", StatusCode: resp.StatusCode, Err: err}
	}
	if pr.Error != "" {
		return nil, &Error{Op: "predict", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", pr.Error)}
	}

	vec, err := g.firstRow(pr.Outputs)
	if err != nil {
		return nil, &Error{Op: "decode", StatusCode: resp.StatusCode, Err: err}
	}
	if len(vec) == 0 {
		return nil, &Error{Op: "decode", StatusCode: resp.StatusCode, Err: ErrEmptyOutput}
	}
	return vec, nil
}

// firstRow extracts the single output row. A model with one output answers
// with a bare [[...]] tensor; one with several answers with an object keyed
// by output name.
func (g *HTTPGenerator) firstRow(raw json.RawMessage) ([]float32, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyOutput
	}

	var rows [][]float32
	if err := json.Unmarshal(raw, &rows); err == nil {
		if len(rows) == 0 {
			return nil, ErrEmptyOutput
		}
		return rows[0], nil
	}

	var named map[string][][]float32
	if err := json.Unmarshal(raw, &named); err != nil {
		return nil, fmt.Errorf("unexpected outputs: %w", err)
	}
	name := g.output
	if name == "" {
		if len(named) != 1 {
			return nil, fmt.Errorf("model has %d outputs, choose one with WithOutputName", len(named))
		}
		for k := range named {
			name = k
		}
	}
	rows, ok := named[name]
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("output %q: %w", name, ErrEmptyOutput)
	}
	return rows[0], nil
}
