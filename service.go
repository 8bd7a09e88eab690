package songrec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/songrec/embed"
	"github.com/hupe1980/songrec/index"
	"github.com/hupe1980/songrec/ranker"
)

// Result is one recommended song.
type Result struct {
	Score float32     `json:"score"`
	Song  *index.Song `json:"song"`
}

// Service answers recommendation requests. It is safe for concurrent use.
type Service struct {
	loader    *Loader
	generator embed.Generator
	ranker    *ranker.Ranker
	opts      options
}

// New creates a Service ranking the catalogs of loader against vectors from gen.
func New(loader *Loader, gen embed.Generator, optFns ...Option) *Service {
	opts := applyOptions(optFns)
	return &Service{
		loader:    loader,
		generator: gen,
		ranker:    ranker.New(opts.rankerOptions...),
		opts:      opts,
	}
}

// Loader returns the catalog loader.
func (s *Service) Loader() *Loader { return s.loader }

// Ranker returns the configured ranker.
func (s *Service) Ranker() *ranker.Ranker { return s.ranker }

// Ready reports whether a catalog is loaded.
func (s *Service) Ready() bool { return s.loader.Loaded() != nil }

// Recommend returns up to req.K songs whose latent vectors are most similar
// to the embedding of req, best first. An empty slice means nothing was
// similar enough.
func (s *Service) Recommend(ctx context.Context, req *Request) ([]Result, error) {
	start := time.Now()
	k := s.opts.defaultK
	if req != nil && req.K > 0 {
		k = req.K
	}

	results, err := s.recommend(ctx, req, k)
	duration := time.Since(start)

	s.opts.logger.WithContext(ctx).LogRecommend(ctx, k, len(results), duration, err)
	s.opts.metricsCollector.RecordRecommend(k, len(results), duration, err)
	return results, err
}

func (s *Service) recommend(ctx context.Context, req *Request, k int) ([]Result, error) {
	if err := s.opts.controller.AcquireQuery(ctx); err != nil {
		return nil, err
	}
	defer s.opts.controller.ReleaseQuery()

	cat, err := s.loader.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, &ValidationError{cause: errors.New("nil request")}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query, err := s.embed(ctx, req.Input(cat))
	if err != nil {
		return nil, err
	}
	if d := cat.Index.Dim(); d > 0 && len(query) != d {
		return nil, &ErrDimensionMismatch{
			Expected: d,
			Actual:   len(query),
			cause:    fmt.Errorf("%w: generator output has %d dimensions", ErrEmbedding, len(query)),
		}
	}

	var searchOpts []ranker.SearchOption
	if len(req.Genres) > 0 {
		searchOpts = append(searchOpts, ranker.WithFilter(cat.Index.GenreFilter(req.Genres...)))
	}

	hits, err := s.ranker.Rank(ctx, cat.Index, query, k, searchOpts...)
	if err != nil {
		return nil, translateError(err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Score: h.Score, Song: cat.Index.Song(h.Row)}
	}
	return results, nil
}

func (s *Service) embed(ctx context.Context, in embed.Input) ([]float32, error) {
	if err := s.opts.controller.WaitGenerator(ctx); err != nil {
		return nil, translateError(err)
	}

	start := time.Now()
	vec, err := s.generator.Generate(ctx, in)
	duration := time.Since(start)

	s.opts.logger.WithContext(ctx).LogEmbed(ctx, duration, err)
	s.opts.metricsCollector.RecordEmbed(duration, err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, embed.ErrEmptyOutput)
	}
	return vec, nil
}
