// File: internal/retry/retry.go
// Package retry provides the general-purpose retry primitives used around
// browser interactions: exponential backoff with an observer callback, a
// fixed-delay variant, and condition polling. None of it knows anything about
// UI concepts; every error is treated as retryable.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/xkilldash9x/scalpel-heal/internal/config"
)

const (
	DefaultMaxAttempts   = 3
	DefaultInitialDelay  = 500 * time.Millisecond
	DefaultMaxDelay      = 5 * time.Second
	DefaultBackoffFactor = 2.0
)

// Options tunes WithBackoff. Zero fields take the package defaults.
type Options struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// OnRetry is called after a failed attempt, before sleeping, whenever
	// another attempt will follow. It is observational only.
	OnRetry func(attempt int, err error)
}

// OptionsFromConfig maps the retry section of the configuration.
func OptionsFromConfig(cfg config.RetryConfig) Options {
	return Options{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: cfg.BackoffFactor,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.BackoffFactor < 1 {
		o.BackoffFactor = DefaultBackoffFactor
	}
	return o
}

// exponential returns a backoff that yields initial, initial*factor, ...
// capped at max. It never stops on its own; the attempt budget is enforced by
// the retry function.
func exponential(initial, max time.Duration, factor float64) goretry.Backoff {
	delay := initial
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		current := delay
		if current > max {
			current = max
		}
		next := time.Duration(float64(delay) * factor)
		if next > max || next <= 0 {
			next = max
		}
		delay = next
		return current, false
	})
}

// WithBackoff runs op until it succeeds or the attempt budget is spent. The
// error of the final attempt is returned unchanged. A cancelled context stops
// the loop and returns the context's error.
func WithBackoff[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var (
		result  T
		attempt int
	)
	err := goretry.Do(ctx, exponential(opts.InitialDelay, opts.MaxDelay, opts.BackoffFactor), func(ctx context.Context) error {
		attempt++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		if attempt >= opts.MaxAttempts {
			return err
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}
		return goretry.RetryableError(err)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Do is WithBackoff for operations without a result.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	_, err := WithBackoff(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)
	return err
}

// Fixed retries op up to attempts times with a constant delay between tries.
// It has no backoff growth and no retry callback.
func Fixed(ctx context.Context, op func(ctx context.Context) error, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	b := goretry.WithMaxRetries(uint64(attempts-1), goretry.NewConstant(delay))
	return goretry.Do(ctx, b, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return goretry.RetryableError(err)
		}
		return nil
	})
}

// errNotYet marks a poll iteration whose condition was false.
var errNotYet = errors.New("condition not met")

// Poll evaluates cond immediately and then every interval until it reports
// true, returns an error, or ctx is done. Callers bound the wait with the
// context deadline; on expiry the context error is returned.
func Poll(ctx context.Context, interval time.Duration, cond func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return goretry.Do(ctx, goretry.NewConstant(interval), func(ctx context.Context) error {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return goretry.RetryableError(errNotYet)
		}
		return nil
	})
}
