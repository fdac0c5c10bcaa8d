// Package transfer drives one producer and one consumer goroutine through a SPSC buffer
// and reports every item handed over.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hedisam/pipeline/chans"
)

// Queue is a SPSC buffer whose operations wait until they can complete or ctx is done.
// ringbuffer.Blocking and retry.Queue both satisfy it.
type Queue[T any] interface {
	EnqueueContext(ctx context.Context, v T) error
	DequeueContext(ctx context.Context) (T, error)
	Len() int
}

type Options struct {
	// Variant labels logs and metrics, e.g. "blocking" or "lockfree".
	Variant string
	// Items is the number of items produced, values 0 to Items-1, and consumed.
	Items         int
	ProducerDelay time.Duration
	ConsumerDelay time.Duration
}

func (o Options) Validate() error {
	var errs []error
	if o.Items < 0 {
		errs = append(errs, fmt.Errorf("items cannot be negative, got %d", o.Items))
	}
	if o.ProducerDelay < 0 {
		errs = append(errs, fmt.Errorf("producer delay cannot be negative, got %s", o.ProducerDelay))
	}
	if o.ConsumerDelay < 0 {
		errs = append(errs, fmt.Errorf("consumer delay cannot be negative, got %s", o.ConsumerDelay))
	}
	return errors.Join(errs...)
}

type Result struct {
	// Consumed holds the items in the order the consumer received them.
	Consumed []int
	Elapsed  time.Duration
}

type Runner struct {
	logger *logrus.Logger
	clock  clockwork.Clock
}

func New(logger *logrus.Logger, clock clockwork.Clock) *Runner {
	return &Runner{
		logger: logger,
		clock:  clock,
	}
}

// Run produces opts.Items items into q from one goroutine while consuming them from
// another, and returns once both are done. The first failure on either side stops the other.
func (r *Runner) Run(ctx context.Context, q Queue[int], opts Options) (*Result, error) {
	err := opts.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger := r.logger.WithContext(ctx).WithField("variant", opts.Variant)
	start := r.clock.Now()

	g, ctx := errgroup.WithContext(ctx)
	consumed := make(chan int)
	g.Go(func() error {
		return r.produce(ctx, logger, q, opts)
	})
	g.Go(func() error {
		defer close(consumed)
		return r.consume(ctx, q, opts, consumed)
	})

	res := &Result{
		Consumed: make([]int, 0, opts.Items),
	}
	var in <-chan int = consumed
	for item := range chans.ReceiveOrDoneSeq(ctx, in) {
		logger.WithField("item", item).Info("Consumed")
		res.Consumed = append(res.Consumed, item)
	}

	err = g.Wait()
	if err != nil {
		failedRuns.WithLabelValues(opts.Variant).Inc()
		return nil, err
	}

	res.Elapsed = r.clock.Since(start)
	logger.WithFields(logrus.Fields{
		"items":   len(res.Consumed),
		"elapsed": res.Elapsed,
	}).Debug("Transfer completed")

	return res, nil
}

func (r *Runner) produce(ctx context.Context, logger *logrus.Entry, q Queue[int], opts Options) error {
	for i := range opts.Items {
		err := q.EnqueueContext(ctx, i)
		if err != nil {
			return fmt.Errorf("produce item %d: %w", i, err)
		}
		producedItems.WithLabelValues(opts.Variant).Inc()
		logger.WithField("item", i).Info("Produced")

		err = r.pause(ctx, opts.ProducerDelay)
		if err != nil {
			return fmt.Errorf("pause after producing item %d: %w", i, err)
		}
	}

	return nil
}

func (r *Runner) consume(ctx context.Context, q Queue[int], opts Options, out chan int) error {
	for i := range opts.Items {
		item, err := q.DequeueContext(ctx)
		if err != nil {
			return fmt.Errorf("consume item %d: %w", i, err)
		}
		consumedItems.WithLabelValues(opts.Variant).Inc()
		occupancy.WithLabelValues(opts.Variant).Set(float64(q.Len()))

		if !chans.SendOrDone(ctx, out, item) {
			return ctx.Err()
		}

		err = r.pause(ctx, opts.ConsumerDelay)
		if err != nil {
			return fmt.Errorf("pause after consuming item %d: %w", i, err)
		}
	}

	return nil
}

func (r *Runner) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
