package retry

import (
	"context"
)

// TryQueue is the non-blocking half of a SPSC buffer, such as ringbuffer.LockFree.
type TryQueue[T any] interface {
	TryEnqueue(v T) bool
	TryDequeue() (T, bool)
	Len() int
	Cap() int
}

// Queue waits on a TryQueue according to a retry Config.
// It inherits the SPSC restriction of the TryQueue it wraps.
type Queue[T any] struct {
	q   TryQueue[T]
	cfg Config
}

func NewQueue[T any](q TryQueue[T], cfg Config) *Queue[T] {
	return &Queue[T]{
		q:   q,
		cfg: cfg,
	}
}

// EnqueueContext retries TryEnqueue until it succeeds, ctx is done or the attempts run out.
func (r *Queue[T]) EnqueueContext(ctx context.Context, v T) error {
	return Do(ctx, r.cfg, "enqueue", func() bool {
		return r.q.TryEnqueue(v)
	})
}

// DequeueContext retries TryDequeue until it succeeds, ctx is done or the attempts run out.
func (r *Queue[T]) DequeueContext(ctx context.Context) (T, error) {
	var item T
	err := Do(ctx, r.cfg, "dequeue", func() bool {
		v, ok := r.q.TryDequeue()
		if ok {
			item = v
		}
		return ok
	})
	return item, err
}

func (r *Queue[T]) Len() int {
	return r.q.Len()
}

func (r *Queue[T]) Cap() int {
	return r.q.Cap()
}
