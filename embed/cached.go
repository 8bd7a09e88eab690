package embed

import (
	"context"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/songrec/internal/cache"
	"github.com/hupe1980/songrec/internal/resource"
)

// Cached memoizes a deterministic Generator. Identical concurrent inputs
// share one call. Failures are not cached.
type Cached struct {
	next  Generator
	lru   *cache.LRU[string, []float32]
	group singleflight.Group
}

// NewCached wraps next with an LRU of capacity entries. Cached vectors are
// charged against rc's memory budget when rc is non-nil; entries that do not
// fit are simply not cached.
func NewCached(next Generator, capacity int, rc *resource.Controller) *Cached {
	sizeOf := func(v []float32) int64 { return int64(4 * cap(v)) }
	return &Cached{
		next: next,
		lru:  cache.NewLRU[string, []float32](capacity, sizeOf, rc),
	}
}

// Generate implements Generator. The returned slice is a copy the caller may modify.
//
// The shared call runs detached from any single caller's cancellation, so a
// caller that gives up returns ctx.Err() while the others still get the vector.
func (c *Cached) Generate(ctx context.Context, in Input) ([]float32, error) {
	key := in.Key()
	if vec, ok := c.lru.Get(key); ok {
		return slices.Clone(vec), nil
	}

	callCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that finished between Get and DoChan already filled the cache.
		if vec, ok := c.lru.Get(key); ok {
			return vec, nil
		}
		vec, err := c.next.Generate(callCtx, in)
		if err != nil {
			return nil, err
		}
		vec = slices.Clip(slices.Clone(vec))
		c.lru.Add(key, vec)
		return vec, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]float32)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns cache hits and misses.
func (c *Cached) Stats() (hits, misses int64) { return c.lru.Stats() }

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.lru.Len() }
