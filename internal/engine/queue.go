package engine

import "sync"

// transitionQueue is a thread-safe, unbounded FIFO of transitions feeding
// one subscriber.
//
// Unbounded so that a slow subscriber never makes the engine drop a
// terminal notification or block a mutation.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in Subscription.Next.
type transitionQueue struct {
	mu     sync.Mutex
	items  []Transition
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

// newTransitionQueue creates an empty queue.
func newTransitionQueue() *transitionQueue {
	return &transitionQueue{
		items:  make([]Transition, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a transition to the back of the queue.
// Returns false if the queue is closed.
func (q *transitionQueue) Enqueue(t Transition) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, t)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Transition{}, false) if the queue is empty.
func (q *transitionQueue) TryDequeue() (Transition, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Transition{}, false
	}

	t := q.items[0]

	// Clear the slot so the error it holds can be collected.
	q.items[0] = Transition{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return t, true
}

// Wait returns a channel that signals when transitions may be available.
// The channel is closed when the queue is closed.
func (q *transitionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *transitionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *transitionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more transitions will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *transitionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
