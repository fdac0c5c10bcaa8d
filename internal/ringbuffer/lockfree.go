package ringbuffer

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// LockFree is a bounded SPSC buffer coordinated only by two atomic cursors.
//
// head is written only by the consumer and tail only by the producer. Each side
// publishes its cursor with an atomic store after touching the slot and reads the
// other side's cursor with an atomic load before touching a slot; that
// store/load pairing is what makes the plain slot accesses race free. Go's atomics
// are sequentially consistent, which is stronger than the release/acquire
// ordering the algorithm needs.
type LockFree[T any] struct {
	_    cpu.CacheLinePad
	head atomic.Uint64
	_    cpu.CacheLinePad
	tail atomic.Uint64
	_    cpu.CacheLinePad

	buf []T
}

// NewLockFree creates a LockFree buffer with the given capacity.
// It holds at most capacity-1 items, except that a capacity of 1 still holds one item.
func NewLockFree[T any](capacity int) (*LockFree[T], error) {
	err := validateCapacity(capacity)
	if err != nil {
		return nil, err
	}

	return &LockFree[T]{
		buf: make([]T, max(2, capacity)),
	}, nil
}

// TryEnqueue writes v at the tail. It returns false without modifying the buffer
// if it is full. It must only be called from the producer goroutine.
func (l *LockFree[T]) TryEnqueue(v T) bool {
	// tail is only ever stored by this goroutine, so this load sees our own last store.
	tail := l.tail.Load()
	next := l.next(tail)
	if next == l.head.Load() {
		return false
	}

	l.buf[tail] = v
	// publish the slot write before the consumer can observe the new tail
	l.tail.Store(next)
	return true
}

// TryDequeue removes and returns the oldest item. It returns (zero[T], false)
// without modifying the buffer if it is empty. It must only be called from the
// consumer goroutine.
func (l *LockFree[T]) TryDequeue() (T, bool) {
	var zero T
	// head is only ever stored by this goroutine.
	head := l.head.Load()
	if head == l.tail.Load() {
		return zero, false
	}

	v := l.buf[head]
	l.buf[head] = zero
	// hand the slot back to the producer only once we're done with it
	l.head.Store(l.next(head))
	return v, true
}

// Len returns a snapshot of the number of buffered items. It may be stale by the
// time it's returned when the producer or consumer is running concurrently.
func (l *LockFree[T]) Len() int {
	head := l.head.Load()
	tail := l.tail.Load()
	n := uint64(len(l.buf))
	return int((tail + n - head) % n)
}

// Cap returns the maximum number of items the buffer holds, one less than its slots.
func (l *LockFree[T]) Cap() int {
	return len(l.buf) - 1
}

func (l *LockFree[T]) next(i uint64) uint64 {
	i++
	if i == uint64(len(l.buf)) {
		return 0
	}
	return i
}
