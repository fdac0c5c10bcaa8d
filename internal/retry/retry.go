// Package retry turns the non-blocking "try" operations of a LockFree ring buffer
// into waiting operations by applying a caller-chosen retry strategy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrExhausted is returned when a bounded strategy runs out of attempts.
	ErrExhausted = errors.New("retry attempts exhausted")

	errNotReady = errors.New("not ready")
)

// Strategy decides what a caller does between failed attempts.
type Strategy string

const (
	// Spin retries immediately.
	Spin Strategy = "spin"
	// Yield gives up the processor between attempts.
	Yield Strategy = "yield"
	// Backoff sleeps for an exponentially growing, jittered interval between attempts.
	Backoff Strategy = "backoff"
)

// ParseStrategy returns the Strategy named by s.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case Spin, Yield, Backoff:
		return st, nil
	default:
		return "", fmt.Errorf("unknown retry strategy %q, expected one of spin, yield or backoff", s)
	}
}

type Config struct {
	Strategy Strategy
	// MaxAttempts bounds the number of attempts per operation. Zero means unbounded.
	MaxAttempts uint64
	// InitialInterval and MaxInterval are only used by the Backoff strategy.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig yields between unbounded attempts.
func DefaultConfig() Config {
	return Config{
		Strategy:        Yield,
		InitialInterval: 100 * time.Microsecond,
		MaxInterval:     10 * time.Millisecond,
	}
}

// Validate reports whether c can be used with Do.
func (c Config) Validate() error {
	_, err := ParseStrategy(string(c.Strategy))
	if err != nil {
		return err
	}
	if c.Strategy != Backoff {
		return nil
	}
	if c.InitialInterval <= 0 {
		return fmt.Errorf("initial interval must be positive, got %s", c.InitialInterval)
	}
	if c.MaxInterval < c.InitialInterval {
		return fmt.Errorf("max interval %s cannot be less than initial interval %s", c.MaxInterval, c.InitialInterval)
	}
	return nil
}

// Do calls attempt until it returns true, waiting between calls as cfg says.
// It returns ctx.Err() once ctx is done and ErrExhausted once cfg.MaxAttempts
// calls have failed. op labels the retry metrics.
func Do(ctx context.Context, cfg Config, op string, attempt func() bool) error {
	switch cfg.Strategy {
	case Spin, Yield:
		return loop(ctx, cfg, op, attempt)
	case Backoff:
		return withBackoff(ctx, cfg, op, attempt)
	default:
		return fmt.Errorf("unknown retry strategy %q", cfg.Strategy)
	}
}

func loop(ctx context.Context, cfg Config, op string, attempt func() bool) error {
	for n := uint64(1); ; n++ {
		if attempt() {
			return nil
		}
		if cfg.MaxAttempts > 0 && n >= cfg.MaxAttempts {
			exhaustedOps.WithLabelValues(op).Inc()
			return fmt.Errorf("%s after %d attempts: %w", op, n, ErrExhausted)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		retries.WithLabelValues(op).Inc()
		if cfg.Strategy == Yield {
			runtime.Gosched()
		}
	}
}

func withBackoff(ctx context.Context, cfg Config, op string, attempt func() bool) error {
	var bk backoff.BackOff = newExponentialBackoffConfig(cfg)
	if cfg.MaxAttempts > 0 {
		// WithMaxRetries counts retries, not attempts
		bk = backoff.WithMaxRetries(bk, cfg.MaxAttempts-1)
	}

	err := backoff.RetryNotify(func() error {
		if attempt() {
			return nil
		}
		return errNotReady
	}, backoff.WithContext(bk, ctx), func(_ error, _ time.Duration) {
		retries.WithLabelValues(op).Inc()
	})
	if errors.Is(err, errNotReady) {
		exhaustedOps.WithLabelValues(op).Inc()
		return fmt.Errorf("%s after %d attempts: %w", op, cfg.MaxAttempts, ErrExhausted)
	}

	return err
}

func newExponentialBackoffConfig(cfg Config) *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(0),
		backoff.WithMaxInterval(cfg.MaxInterval),
		backoff.WithInitialInterval(cfg.InitialInterval),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.2),
	)
}
