package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// ErrRateLimited is returned when the generator rate limit cannot admit a
// call before the context deadline.
var ErrRateLimited = errors.New("generator rate limit exceeded")

// Config holds resource limits. Zero values mean unlimited.
type Config struct {
	// MaxConcurrentQueries bounds in-flight recommendations.
	MaxConcurrentQueries int64

	// GeneratorRatePerSec caps embedding generator calls per second.
	GeneratorRatePerSec float64

	// GeneratorBurst is the token bucket size. Defaults to 1 when a rate is set.
	GeneratorBurst int

	// MemoryLimitBytes is the hard limit for cache memory.
	MemoryLimitBytes int64
}

// Controller manages process-wide limits.
type Controller struct {
	cfg Config

	querySem *semaphore.Weighted // nil if unlimited
	inFlight atomic.Int64
	genLimit *rate.Limiter // nil if unlimited
	memSem   *semaphore.Weighted
	memUsed  atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxConcurrentQueries > 0 {
		c.querySem = semaphore.NewWeighted(cfg.MaxConcurrentQueries)
	}
	if cfg.GeneratorRatePerSec > 0 {
		burst := cfg.GeneratorBurst
		if burst < 1 {
			burst = 1
		}
		c.genLimit = rate.NewLimiter(rate.Limit(cfg.GeneratorRatePerSec), burst)
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	return c
}

// AcquireQuery waits for a query slot or until ctx is done.
func (c *Controller) AcquireQuery(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.querySem != nil {
		if err := c.querySem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.inFlight.Add(1)
	return nil
}

// TryAcquireQuery reserves a query slot without blocking.
func (c *Controller) TryAcquireQuery() bool {
	if c == nil {
		return true
	}
	if c.querySem != nil && !c.querySem.TryAcquire(1) {
		return false
	}
	c.inFlight.Add(1)
	return true
}

// ReleaseQuery releases a slot taken by AcquireQuery or TryAcquireQuery.
func (c *Controller) ReleaseQuery() {
	if c == nil {
		return
	}
	c.inFlight.Add(-1)
	if c.querySem != nil {
		c.querySem.Release(1)
	}
}

// InFlight returns the number of queries holding a slot.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.inFlight.Load()
}

// WaitGenerator blocks until the generator rate limit admits one call.
// It returns ctx.Err() once ctx is done and ErrRateLimited when the wait
// would outlast the deadline.
func (c *Controller) WaitGenerator(ctx context.Context) error {
	if c == nil || c.genLimit == nil {
		return nil
	}
	if err := c.genLimit.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return nil
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}
