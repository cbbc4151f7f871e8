package graph

import (
	"time"

	"go.uber.org/zap"
)

// Worker is a node's execution strategy. Exactly one worker backs each node.
type Worker interface {
	// Start transitions the worker to started, resolving invocation targets.
	Start() error
	// Stop tears the worker down. Async workers fully drain before returning.
	Stop()
	// Execute runs or enqueues one invocation of the node's target. The
	// returned error covers submission only; target failures are caught,
	// logged and swallowed inside the worker.
	Execute(args []any, kwargs map[string]any) error
	// Async reports whether this worker runs work on a pool.
	Async() bool
}

// SyncWorker invokes the target inline on whichever goroutine delivered the
// triggering event.
type SyncWorker struct {
	node    *Node
	target  Work
	started bool
}

// NewSyncWorker creates an uninitialized synchronous worker for node.
func NewSyncWorker(node *Node) *SyncWorker {
	return &SyncWorker{node: node}
}

// Start resolves the invocation target once and transitions to started.
func (w *SyncWorker) Start() error {
	target, err := w.node.target.resolve()
	if err != nil {
		return err
	}
	w.target = target
	w.started = true
	return nil
}

// Stop discards the resolved target and returns to uninitialized.
func (w *SyncWorker) Stop() {
	w.target = nil
	w.started = false
}

// Async reports false: work runs on the caller's goroutine.
func (w *SyncWorker) Async() bool { return false }

// Execute invokes the target with the cached input state. An unstarted
// worker logs the condition and performs no invocation. A target error is
// logged and swallowed: the node's value is unchanged and nothing is emitted
// for that invocation. On success the result is delivered to the node.
func (w *SyncWorker) Execute(args []any, kwargs map[string]any) error {
	if !w.started {
		w.node.logger.Error("sync worker executed before start",
			zap.String("node", w.node.name),
		)
		w.node.recordInvocation("sync", "unstarted", 0)
		return nil
	}

	start := time.Now()
	result, err := w.target(args, kwargs)
	if err != nil {
		w.node.logger.Error("sync worker target failed",
			zap.String("node", w.node.name),
			zap.Error(err),
		)
		w.node.recordInvocation("sync", "error", time.Since(start))
		return nil
	}
	w.node.recordInvocation("sync", "ok", time.Since(start))
	w.node.deliver(result)
	return nil
}
