// Package ringbuffer implements bounded single-producer/single-consumer FIFO buffers.
//
// Two variants share the same hand-off contract:
//   - Blocking suspends the producer while the buffer is full and the consumer
//     while it is empty, using a mutex and two condition variables.
//   - LockFree never suspends. TryEnqueue and TryDequeue report false when the
//     buffer is full or empty and leave the waiting policy to the caller.
//
// Capacity semantics differ between the two. Blocking counts occupied slots and
// holds up to capacity items. LockFree tells full from empty by comparing the
// next tail with head, so one slot is always left free and it holds up to
// capacity-1 items (a capacity of 1 is given a second, sacrificed slot so it can
// hold one item). Cap reports the number of items each variant can actually hold.
//
// Neither variant is safe for more than one producer or more than one consumer.
package ringbuffer
