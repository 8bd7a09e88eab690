package ranker

import (
	"context"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/songrec/distance"
	"github.com/hupe1980/songrec/index"
	"github.com/hupe1980/songrec/internal/queue"
)

// Hit is one ranked row of a store.
type Hit struct {
	Row   uint32
	Score float32
}

// Ranker scores queries against an index.Store.
// A Ranker is immutable and safe for concurrent use.
type Ranker struct {
	opts options
}

// New creates a Ranker.
func New(optFns ...Option) *Ranker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.parallelism < 1 {
		opts.parallelism = defaultOptions().parallelism
	}
	return &Ranker{opts: opts}
}

// Threshold returns the similarity a hit must strictly exceed.
func (r *Ranker) Threshold() float32 { return r.opts.threshold }

// Strategy returns the configured selection strategy.
func (r *Ranker) Strategy() Strategy { return r.opts.strategy }

// Rank returns at most k hits of s whose cosine similarity to query is above
// the threshold, best first. An empty store or an all-zero query yields an
// empty, non-nil slice.
func (r *Ranker) Rank(ctx context.Context, s *index.Store, query []float32, k int, optFns ...SearchOption) ([]Hit, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return []Hit{}, nil
	}
	if len(query) != s.Dim() {
		return nil, &DimensionMismatchError{Expected: s.Dim(), Actual: len(query)}
	}

	var so searchOptions
	for _, fn := range optFns {
		fn(&so)
	}

	qn := distance.Norm(query)
	if qn == 0 || math.IsNaN(float64(qn)) || math.IsInf(float64(qn), 0) {
		return []Hit{}, nil
	}

	var (
		items []queue.Item
		err   error
	)
	if so.filter != nil {
		items = r.scoreFiltered(s, query, qn, so.filter)
	} else {
		items, err = r.scoreAll(ctx, s, query, qn)
		if err != nil {
			return nil, err
		}
	}

	var top []queue.Item
	switch r.opts.strategy {
	case StrategyHeap:
		top = selectHeap(items, k)
	default:
		top = selectPartition(items, k)
	}

	hits := make([]Hit, len(top))
	for i, it := range top {
		hits[i] = Hit{Row: it.Row, Score: it.Score}
	}
	return hits, nil
}

// similarity turns a dot product into a cosine score. ok is false for
// zero-norm rows and scores at or below the threshold.
func (r *Ranker) similarity(dot, qn, vn float32) (float32, bool) {
	if vn == 0 {
		return 0, false
	}
	score := dot / (qn * vn)
	if !(score > r.opts.threshold) {
		return 0, false
	}
	return min(score, 1), true
}

func (r *Ranker) scoreAll(ctx context.Context, s *index.Store, query []float32, qn float32) ([]queue.Item, error) {
	n, dim := s.Len(), s.Dim()
	matrix, norms := s.Matrix(), s.Norms()
	dots := make([]float32, n)

	workers := r.opts.parallelism
	if r.opts.parallelThreshold < 1 || n < r.opts.parallelThreshold || workers == 1 {
		distance.DotBatch(query, matrix, dim, dots)
	} else {
		chunk := (n + workers - 1) / workers
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				distance.DotBatch(query, matrix[lo*dim:hi*dim], dim, dots[lo:hi])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	items := make([]queue.Item, 0, 64)
	for row, dot := range dots {
		if score, ok := r.similarity(dot, qn, norms[row]); ok {
			items = append(items, queue.Item{Row: uint32(row), Score: score})
		}
	}
	return items, nil
}

func (r *Ranker) scoreFiltered(s *index.Store, query []float32, qn float32, filter *roaring.Bitmap) []queue.Item {
	n := uint32(s.Len())
	norms := s.Norms()

	var items []queue.Item
	it := filter.Iterator()
	for it.HasNext() {
		row := it.Next()
		if row >= n {
			break
		}
		if score, ok := r.similarity(distance.Dot(query, s.Vector(row)), qn, norms[row]); ok {
			items = append(items, queue.Item{Row: row, Score: score})
		}
	}
	return items
}
