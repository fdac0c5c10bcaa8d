package ringbuffer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned when a buffer is constructed with a capacity less than one.
	ErrInvalidCapacity = errors.New("ring buffer capacity must be at least 1")
)

func validateCapacity(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return nil
}

// RingBuffer is a fixed capacity FIFO without any synchronisation of its own.
// Callers must serialise access to it; Blocking does so with its mutex.
type RingBuffer[T any] struct {
	buf  []T
	head int
	tail int
	size int
}

// New creates a RingBuffer with the given capacity.
// A default capacity of 1 is used if the given value is less than one.
func New[T any](capacity int) *RingBuffer[T] {
	return &RingBuffer[T]{
		buf: make([]T, max(1, capacity)),
	}
}

// Size returns the number of elements currently in the buffer.
func (r *RingBuffer[T]) Size() int {
	return r.size
}

// Cap returns the number of slots in the buffer.
func (r *RingBuffer[T]) Cap() int {
	return len(r.buf)
}

// IsFull returns true if every slot is occupied.
func (r *RingBuffer[T]) IsFull() bool {
	return r.size == len(r.buf)
}

// IsEmpty returns true if no slot is occupied.
func (r *RingBuffer[T]) IsEmpty() bool {
	return r.size == 0
}

// Push writes item at the tail. It returns false if the buffer is full and a push cannot be done.
func (r *RingBuffer[T]) Push(item T) bool {
	if r.size == len(r.buf) {
		return false
	}

	r.buf[r.tail] = item
	r.tail = (r.tail + 1) % len(r.buf)
	r.size++
	return true
}

// Pop removes and returns the oldest item. If empty, it returns (zero[T], false).
func (r *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return item, true
}
