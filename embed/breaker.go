package embed

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrBreakerOpen is returned without calling the generator while the breaker is open.
var ErrBreakerOpen = errors.New("embed: circuit breaker open")

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state counter reset period, 0 never resets
	Timeout          time.Duration // open duration before probing
	FailureThreshold uint32        // consecutive failures that trip the breaker
	OnStateChange    func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns conservative defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "generator",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker stops calling a failing generator for a while.
// Caller cancellations do not count as failures.
type Breaker struct {
	next Generator
	cb   *gobreaker.CircuitBreaker[[]float32]
}

// NewBreaker wraps next with DefaultBreakerConfig.
func NewBreaker(next Generator) *Breaker {
	return NewBreakerWithConfig(next, DefaultBreakerConfig())
}

// NewBreakerWithConfig wraps next.
func NewBreakerWithConfig(next Generator, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: cfg.OnStateChange,
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[[]float32](settings)}
}

// Generate implements Generator.
func (b *Breaker) Generate(ctx context.Context, in Input) ([]float32, error) {
	vec, err := b.cb.Execute(func() ([]float32, error) {
		return b.next.Generate(ctx, in)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &Error{Op: "breaker", Err: errors.Join(ErrBreakerOpen, err)}
	}
	return vec, err
}

// State returns the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }
