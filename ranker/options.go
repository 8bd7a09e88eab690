package ranker

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultThreshold is the similarity a hit must exceed when no threshold is configured.
const DefaultThreshold float32 = 0.6

// DefaultParallelThreshold is the store size from which scoring is split across goroutines.
const DefaultParallelThreshold = 1 << 14

// Strategy selects the top-k algorithm.
type Strategy int

const (
	// StrategyPartition selects with quickselect and sorts only the k winners.
	StrategyPartition Strategy = iota
	// StrategyHeap selects with a bounded heap fed row by row.
	StrategyHeap
)

func (s Strategy) String() string {
	switch s {
	case StrategyPartition:
		return "partition"
	case StrategyHeap:
		return "heap"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "partition" or "heap". The empty string selects the default.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partition":
		return StrategyPartition, nil
	case "heap":
		return StrategyHeap, nil
	default:
		return 0, fmt.Errorf("ranker: unknown strategy %q", s)
	}
}

type options struct {
	threshold         float32
	strategy          Strategy
	parallelism       int
	parallelThreshold int
}

// Option configures a Ranker.
type Option func(*options)

// WithThreshold sets the similarity a hit must strictly exceed.
func WithThreshold(t float32) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithStrategy sets the selection strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithParallelism bounds the goroutines used to score large stores.
// Values below 1 fall back to GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithParallelThreshold sets the store size from which scoring runs in parallel.
// A value below 1 disables parallel scoring.
func WithParallelThreshold(n int) Option {
	return func(o *options) {
		o.parallelThreshold = n
	}
}

func defaultOptions() options {
	return options{
		threshold:         DefaultThreshold,
		strategy:          StrategyPartition,
		parallelism:       runtime.GOMAXPROCS(0),
		parallelThreshold: DefaultParallelThreshold,
	}
}

type searchOptions struct {
	filter *roaring.Bitmap
}

// SearchOption configures a single Rank call.
type SearchOption func(*searchOptions)

// WithFilter restricts ranking to the rows contained in filter.
// A nil filter ranks every row; an empty filter ranks none.
func WithFilter(filter *roaring.Bitmap) SearchOption {
	return func(o *searchOptions) {
		o.filter = filter
	}
}
