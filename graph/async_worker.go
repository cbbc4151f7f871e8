package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPoolSize is the execution-worker count used when none is given.
const DefaultPoolSize = 10

// ErrWorkerNotStarted is returned when work is submitted to a worker that
// has not been started.
var ErrWorkerNotStarted = errors.New("worker not started")

// poisonPill is the sentinel enqueued to end a consumer loop.
type poisonPill struct{}

// invocation is one pending (args, kwargs) pair on the work queue.
type invocation struct {
	args   []any
	kwargs map[string]any
}

// AsyncWorker runs a node's target on a fixed pool of N execution workers
// plus one dedicated result-draining goroutine. Execute never blocks; it only
// enqueues. Within one execution worker invocations process in enqueue
// order, but across the pool completions are deliberately unordered, so
// downstream notifications may not follow submission order.
//
// All result delivery for the node is serialized through the single drainer,
// so the node's value and output port are only ever mutated from one
// goroutine regardless of pool size.
type AsyncWorker struct {
	node    *Node
	backing Backing
	size    int

	workQueue   *queue
	resultQueue *queue
	execWG      sync.WaitGroup
	drainWG     sync.WaitGroup
	started     atomic.Bool
}

// NewAsyncWorker creates a pooled worker for node on the given backing.
// size <= 0 selects DefaultPoolSize.
func NewAsyncWorker(node *Node, backing Backing, size int) *AsyncWorker {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &AsyncWorker{node: node, backing: backing, size: size}
}

// Async reports true.
func (w *AsyncWorker) Async() bool { return true }

// PoolSize returns the execution-worker count.
func (w *AsyncWorker) PoolSize() int { return w.size }

// Start resolves one target per execution worker through the backing, then
// launches the pool and the result drainer.
func (w *AsyncWorker) Start() error {
	if w.started.Load() {
		return nil
	}

	works := make([]Work, 0, w.size)
	releases := make([]func(), 0, w.size)
	for i := 0; i < w.size; i++ {
		work, release, err := w.backing.Resolve(w.node.target)
		if err != nil {
			for _, r := range releases {
				r()
			}
			return fmt.Errorf("resolve target for worker %d: %w", i, err)
		}
		works = append(works, work)
		releases = append(releases, release)
	}

	w.workQueue = newQueue()
	w.resultQueue = newQueue()

	w.execWG.Add(w.size)
	for i := 0; i < w.size; i++ {
		go w.runWorker(works[i], releases[i])
	}
	w.drainWG.Add(1)
	go w.runDrainer()

	w.started.Store(true)
	return nil
}

// Execute enqueues one invocation and returns immediately.
func (w *AsyncWorker) Execute(args []any, kwargs map[string]any) error {
	if !w.started.Load() {
		return ErrWorkerNotStarted
	}
	w.workQueue.Put(invocation{args: args, kwargs: kwargs})
	w.node.recordQueueDepth("work", w.workQueue.Len())
	return nil
}

// Stop drains and tears the pool down. One poison pill per execution worker
// is enqueued behind any pending work; only after every execution worker has
// terminated — guaranteeing any result it produced is already on the result
// queue — is a single pill enqueued for the drainer. No produced result is
// lost or left unprocessed.
func (w *AsyncWorker) Stop() {
	if !w.started.CompareAndSwap(true, false) {
		return
	}
	for i := 0; i < w.size; i++ {
		w.workQueue.Put(poisonPill{})
	}
	w.execWG.Wait()

	w.resultQueue.Put(poisonPill{})
	w.drainWG.Wait()
}

// Join blocks until every enqueued invocation and every produced result has
// been fully processed. Flush-and-wait outside shutdown.
func (w *AsyncWorker) Join(ctx context.Context) error {
	if !w.started.Load() {
		return nil
	}
	if err := w.workQueue.Join(ctx); err != nil {
		return err
	}
	return w.resultQueue.Join(ctx)
}

// runWorker is one execution worker loop.
func (w *AsyncWorker) runWorker(target Work, release func()) {
	defer w.execWG.Done()
	defer release()

	for {
		payload := w.workQueue.Get()
		if _, quit := payload.(poisonPill); quit {
			w.workQueue.TaskDone()
			return
		}

		inv := payload.(invocation)
		start := time.Now()
		result, err := target(inv.args, inv.kwargs)
		if err != nil {
			w.node.logger.Error("async worker target failed",
				zap.String("node", w.node.name),
				zap.String("backing", w.backing.Name()),
				zap.Error(err),
			)
			w.node.recordInvocation(w.backing.Name(), "error", time.Since(start))
			w.workQueue.TaskDone()
			continue
		}

		// The result goes up before the work item is accounted done, so a
		// concurrent Join cannot slip between the two queues.
		w.resultQueue.Put(result)
		w.workQueue.TaskDone()
		w.node.recordInvocation(w.backing.Name(), "ok", time.Since(start))
	}
}

// runDrainer is the single result-delivery loop.
func (w *AsyncWorker) runDrainer() {
	defer w.drainWG.Done()

	for {
		payload := w.resultQueue.Get()
		if _, quit := payload.(poisonPill); quit {
			w.resultQueue.TaskDone()
			return
		}
		w.node.deliver(payload)
		w.resultQueue.TaskDone()
	}
}
