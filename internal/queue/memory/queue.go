// Package memory provides the in-process FIFO job queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vidstream-labs/searchcore/internal/search"
)

// Queue is a bounded in-memory FIFO queue with context-aware operations.
// It is safe for any number of concurrent producers and consumers.
type Queue struct {
	ch      chan search.QueueItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan search.QueueItem, capacity),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item search.QueueItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next job in submission order, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (search.QueueItem, error) {
	select {
	case <-ctx.Done():
		return search.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return search.QueueItem{}, search.ErrQueueClosed
		}
		return item, nil
	}
}

// Len reports the number of queued jobs not yet picked up by a worker.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
