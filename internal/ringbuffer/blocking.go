package ringbuffer

import (
	"context"
	"sync"
)

// Blocking is a bounded SPSC buffer whose operations wait for space or data.
type Blocking[T any] struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond
	ring     *RingBuffer[T]
}

// NewBlocking creates a Blocking buffer that holds up to capacity items.
func NewBlocking[T any](capacity int) (*Blocking[T], error) {
	err := validateCapacity(capacity)
	if err != nil {
		return nil, err
	}

	b := &Blocking[T]{
		ring: New[T](capacity),
	}
	b.notFull.L = &b.mu
	b.notEmpty.L = &b.mu
	return b, nil
}

// Enqueue adds v at the tail, waiting as long as the buffer is full.
func (b *Blocking[T]) Enqueue(v T) {
	// a background context is never done, so the only possible error is nil
	_ = b.EnqueueContext(context.Background(), v)
}

// Dequeue removes and returns the oldest item, waiting as long as the buffer is empty.
func (b *Blocking[T]) Dequeue() T {
	v, _ := b.DequeueContext(context.Background())
	return v
}

// EnqueueContext adds v at the tail, waiting while the buffer is full until ctx is done.
// It returns ctx.Err() without modifying the buffer if ctx ends first.
func (b *Blocking[T]) EnqueueContext(ctx context.Context, v T) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ring.IsFull() {
		stop := b.wakeOnDone(ctx)
		defer stop()

		for b.ring.IsFull() {
			err = ctx.Err()
			if err != nil {
				return err
			}
			b.notFull.Wait()
		}
	}

	_ = b.ring.Push(v)
	b.notEmpty.Signal()
	return nil
}

// DequeueContext removes and returns the oldest item, waiting while the buffer is empty
// until ctx is done. It returns ctx.Err() without modifying the buffer if ctx ends first.
func (b *Blocking[T]) DequeueContext(ctx context.Context) (T, error) {
	var zero T
	err := ctx.Err()
	if err != nil {
		return zero, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ring.IsEmpty() {
		stop := b.wakeOnDone(ctx)
		defer stop()

		for b.ring.IsEmpty() {
			err = ctx.Err()
			if err != nil {
				return zero, err
			}
			b.notEmpty.Wait()
		}
	}

	v, _ := b.ring.Pop()
	b.notFull.Signal()
	return v, nil
}

// Len returns the number of items currently buffered.
func (b *Blocking[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ring.Size()
}

// Cap returns the maximum number of items the buffer holds.
func (b *Blocking[T]) Cap() int {
	return b.ring.Cap()
}

// wakeOnDone arranges for every waiter to be woken once ctx is done so it can
// observe ctx.Err(). The broadcast happens under mu, which the caller only
// releases inside Wait, so the wake-up cannot be lost between the check and the wait.
func (b *Blocking[T]) wakeOnDone(ctx context.Context) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return true }
	}

	return context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.notFull.Broadcast()
		b.notEmpty.Broadcast()
	})
}
