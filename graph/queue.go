package graph

import (
	"context"
	"sync"
)

// queue is an unbounded blocking FIFO safe for concurrent multi-producer
// multi-consumer use, with task-completion accounting so Join can wait for
// every enqueued item to be fully processed, not merely dequeued. It is the
// only resource shared across a worker pool.
type queue struct {
	mu         sync.Mutex
	nonEmpty   *sync.Cond
	allDone    *sync.Cond
	items      []any
	unfinished int
}

func newQueue() *queue {
	q := &queue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q
}

// Put enqueues an item. Never blocks.
func (q *queue) Put(item any) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.unfinished++
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

// Get blocks until an item is available and dequeues it. Every Get must be
// paired with a TaskDone once processing finishes.
func (q *queue) Get() any {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.nonEmpty.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// TaskDone marks one previously dequeued item as fully processed.
func (q *queue) TaskDone() {
	q.mu.Lock()
	q.unfinished--
	done := q.unfinished <= 0
	q.mu.Unlock()
	if done {
		q.allDone.Broadcast()
	}
}

// Len returns the number of items currently queued.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Join blocks until every enqueued item has been processed, or ctx is done.
func (q *queue) Join(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		// Wake the waiter so it can observe the cancellation. The lock is
		// taken so the broadcast cannot land between a waiter's ctx check
		// and its Wait, which would leave it parked forever.
		q.mu.Lock()
		defer q.mu.Unlock()
		q.allDone.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.allDone.Wait()
	}
	return nil
}
