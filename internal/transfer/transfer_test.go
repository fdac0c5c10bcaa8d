package transfer_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/spscring/internal/retry"
	"github.com/hedisam/spscring/internal/ringbuffer"
	"github.com/hedisam/spscring/internal/transfer"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newQueue(t *testing.T, variant string, capacity int, cfg retry.Config) transfer.Queue[int] {
	t.Helper()

	switch variant {
	case "blocking":
		b, err := ringbuffer.NewBlocking[int](capacity)
		require.NoError(t, err)
		return b
	case "lockfree":
		lf, err := ringbuffer.NewLockFree[int](capacity)
		require.NoError(t, err)
		return retry.NewQueue[int](lf, cfg)
	default:
		t.Fatalf("unknown variant %q", variant)
		return nil
	}
}

func sequence(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func TestRun(t *testing.T) {
	tests := map[string]struct {
		variant  string
		capacity int
		retry    retry.Config
		opts     transfer.Options
	}{
		"blocking, capacity 5, ten items": {
			variant:  "blocking",
			capacity: 5,
			opts:     transfer.Options{Items: 10},
		},
		"lockfree, capacity 5, ten items": {
			variant:  "lockfree",
			capacity: 5,
			retry:    retry.DefaultConfig(),
			opts:     transfer.Options{Items: 10},
		},
		"blocking, slow consumer": {
			variant:  "blocking",
			capacity: 2,
			opts:     transfer.Options{Items: 10, ConsumerDelay: time.Millisecond},
		},
		"lockfree, slow producer": {
			variant:  "lockfree",
			capacity: 2,
			retry:    retry.Config{Strategy: retry.Spin},
			opts:     transfer.Options{Items: 10, ProducerDelay: time.Millisecond},
		},
		"lockfree, backoff, many items": {
			variant:  "lockfree",
			capacity: 8,
			retry: retry.Config{
				Strategy:        retry.Backoff,
				InitialInterval: time.Microsecond,
				MaxInterval:     100 * time.Microsecond,
			},
			opts: transfer.Options{Items: 2000},
		},
		"blocking, capacity 1, many items": {
			variant:  "blocking",
			capacity: 1,
			opts:     transfer.Options{Items: 2000},
		},
		"no items": {
			variant:  "blocking",
			capacity: 3,
			opts:     transfer.Options{Items: 0},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			test.opts.Variant = test.variant
			q := newQueue(t, test.variant, test.capacity, test.retry)
			res, err := transfer.New(newLogger(), clockwork.NewRealClock()).Run(ctx, q, test.opts)
			require.NoError(t, err)
			assert.Equal(t, sequence(test.opts.Items), res.Consumed)
			assert.Equal(t, 0, q.Len())
		})
	}
}

func TestRunPacedByClock(t *testing.T) {
	const (
		items = 10
		delay = 10 * time.Millisecond
	)

	for _, variant := range []string{"blocking", "lockfree"} {
		t.Run(variant, func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			q := newQueue(t, variant, 5, retry.DefaultConfig())

			type result struct {
				res *transfer.Result
				err error
			}
			done := make(chan result, 1)
			go func() {
				res, err := transfer.New(newLogger(), clock).Run(context.Background(), q, transfer.Options{
					Variant:       variant,
					Items:         items,
					ProducerDelay: delay,
				})
				done <- result{res: res, err: err}
			}()

			// the producer pauses once after every item
			for range items {
				clock.BlockUntil(1)
				clock.Advance(delay)
			}

			select {
			case r := <-done:
				require.NoError(t, r.err)
				assert.Equal(t, sequence(items), r.res.Consumed)
				assert.Equal(t, items*delay, r.res.Elapsed)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not finish after the clock advanced past every pause")
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	for _, variant := range []string{"blocking", "lockfree"} {
		t.Run(variant, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			q := newQueue(t, variant, 2, retry.DefaultConfig())
			// the producer is paused far longer than the deadline
			res, err := transfer.New(newLogger(), clockwork.NewRealClock()).Run(ctx, q, transfer.Options{
				Variant:       variant,
				Items:         10,
				ProducerDelay: time.Hour,
			})
			require.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Nil(t, res)
		})
	}
}

func TestRunExhaustedRetries(t *testing.T) {
	lf, err := ringbuffer.NewLockFree[int](2)
	require.NoError(t, err)
	// the consumer gives up long before the paused producer delivers a second item
	q := retry.NewQueue[int](lf, retry.Config{Strategy: retry.Yield, MaxAttempts: 10})

	res, err := transfer.New(newLogger(), clockwork.NewRealClock()).Run(context.Background(), q, transfer.Options{
		Variant:       "lockfree",
		Items:         3,
		ProducerDelay: time.Hour,
	})
	require.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorContains(t, err, "consume item")
	assert.Nil(t, res)
}

func TestOptionsValidate(t *testing.T) {
	tests := map[string]struct {
		opts        transfer.Options
		errContains []string
	}{
		"valid": {
			opts: transfer.Options{Items: 10, ProducerDelay: time.Millisecond},
		},
		"negative items": {
			opts:        transfer.Options{Items: -1},
			errContains: []string{"items cannot be negative"},
		},
		"negative delays": {
			opts: transfer.Options{ProducerDelay: -time.Second, ConsumerDelay: -time.Second},
			errContains: []string{
				"producer delay cannot be negative",
				"consumer delay cannot be negative",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.opts.Validate()
			if len(test.errContains) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, msg := range test.errContains {
				assert.ErrorContains(t, err, msg)
			}
		})
	}
}
