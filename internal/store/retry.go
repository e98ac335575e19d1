package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 10 * time.Millisecond
	defaultMaxDelay    = 500 * time.Millisecond
)

// Options tunes conflict handling for a Store.
type Options struct {
	// MaxAttempts bounds how many times a transaction is attempted.
	MaxAttempts uint64
	// BaseDelay is the first backoff interval; later ones double.
	BaseDelay time.Duration
	// OnConflict, when set, is invoked before each retry.
	OnConflict func(attempt uint64, err error)
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = defaultBaseDelay
	}
	return o
}

func runWithRetry(ctx context.Context, opts Options, attemptFn func(ctx context.Context) error) error {
	opts = opts.withDefaults()

	backoff := retry.NewExponential(opts.BaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithCappedDuration(defaultMaxDelay, backoff)
	backoff = retry.WithMaxRetries(opts.MaxAttempts-1, backoff)

	var attempt uint64
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := attemptFn(ctx)
		if errors.Is(err, ErrConflict) {
			if opts.OnConflict != nil && attempt < opts.MaxAttempts {
				opts.OnConflict(attempt, err)
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w after %d attempts: %w", ErrTransient, attempt, err)
	}
	return err
}
