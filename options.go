package songrec

import (
	"log/slog"

	"github.com/hupe1980/songrec/internal/resource"
	"github.com/hupe1980/songrec/ranker"
)

// DefaultK is the number of results returned when a request leaves K at 0.
const DefaultK = 10

// MaxK bounds the number of results of one request.
const MaxK = 100

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	rankerOptions    []ranker.Option
	controller       *resource.Controller
	defaultK         int
}

// Option configures a Service or Loader.
type Option func(*options)

// WithThreshold sets the similarity a result must strictly exceed.
// Default ranker.DefaultThreshold (0.6).
func WithThreshold(t float32) Option {
	return func(o *options) {
		o.rankerOptions = append(o.rankerOptions, ranker.WithThreshold(t))
	}
}

// WithStrategy selects the top-k algorithm. Both strategies return identical
// results; StrategyHeap allocates less when k is small relative to the matches.
func WithStrategy(s ranker.Strategy) Option {
	return func(o *options) {
		o.rankerOptions = append(o.rankerOptions, ranker.WithStrategy(s))
	}
}

// WithRankerOptions passes options through to the ranker.
func WithRankerOptions(opts ...ranker.Option) Option {
	return func(o *options) {
		o.rankerOptions = append(o.rankerOptions, opts...)
	}
}

// WithResourceController bounds concurrent recommendations and generator call
// rate. Pass nil for no limits.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithDefaultK sets the result count used when a request leaves K at 0.
func WithDefaultK(k int) Option {
	return func(o *options) {
		if k > 0 && k <= MaxK {
			o.defaultK = k
		}
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &songrec.BasicMetricsCollector{}
//	svc := songrec.New(loader, gen, songrec.WithMetricsCollector(metrics))
//	// ... use svc ...
//	stats := metrics.GetStats()
//	fmt.Printf("Recommendations: %d, Avg latency: %dns\n", stats.RecommendCount, stats.RecommendAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		defaultK:         DefaultK,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
