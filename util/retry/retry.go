// Package retry runs fallible operations with a bounded number of attempts and
// exponential backoff between them. It is not tied to media loading.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/config"
)

type Options struct {
	MaxRetries int // total attempts, including the first
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}
}

func FromConfig(c config.RetryConfig) Options {
	return Options{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay(),
		MaxDelay:   c.MaxDelay(),
		Multiplier: c.Multiplier,
	}
}

func (o Options) normalized() Options {
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	if o.Multiplier < 1 {
		o.Multiplier = 1
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = o.BaseDelay
	}
	if o.BaseDelay > o.MaxDelay {
		o.BaseDelay = o.MaxDelay
	}
	return o
}

// Delay is the wait before the attempt following failed attempt number
// `attempt` (1-based): min(BaseDelay * Multiplier^(attempt-1), MaxDelay).
func Delay(attempt int, opts Options) time.Duration {
	opts = opts.normalized()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(opts.BaseDelay) * math.Pow(opts.Multiplier, float64(attempt-1))
	if d > float64(opts.MaxDelay) {
		return opts.MaxDelay
	}
	return time.Duration(d)
}

func (o Options) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.BaseDelay
	b.MaxInterval = o.MaxDelay
	b.Multiplier = o.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // bounded by attempts instead
	b.Reset()
	return b
}

type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", common.ErrRetriesExhausted, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() []error {
	return []error{common.ErrRetriesExhausted, e.Err}
}

// NotifyFunc is called after a failed attempt that will be retried, with the
// 1-based number of the failed attempt and the wait before the next one.
type NotifyFunc func(attempt int, err error, wait time.Duration)

// Do calls op until it succeeds, fails permanently, or opts.MaxRetries
// attempts have failed. Errors which are not retryable (see
// common.IsRetryable) or wrapped with backoff.Permanent are returned as-is
// immediately. When the budget runs out a *RetriesExhaustedError carrying the
// last error is returned. Cancelling ctx aborts any backoff wait.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options, notify NotifyFunc) (T, error) {
	opts = opts.normalized()

	attempts := 0
	permanent := false
	operation := func() (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			permanent = true
			return zero, backoff.Permanent(err)
		}

		attempts++
		v, err := op(ctx)
		if err != nil {
			var pe *backoff.PermanentError
			if errors.As(err, &pe) {
				permanent = true
			} else if !common.IsRetryable(err) {
				permanent = true
				return v, backoff.Permanent(err)
			}
		}
		return v, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(opts.backOff(), uint64(opts.MaxRetries-1)), ctx)
	v, err := backoff.RetryNotifyWithData(operation, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempts, err, wait)
		}
	})
	if err == nil {
		return v, nil
	}

	var zero T
	if permanent {
		return zero, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	return zero, &RetriesExhaustedError{Attempts: attempts, Err: err}
}
