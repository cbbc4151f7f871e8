package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jsphon/node-process/internal/metrics"
)

// NodeConfig declares one node. Wiring is static: everything here is applied
// once at construction and never re-wired.
type NodeConfig struct {
	// Name identifies the node in logs, metrics and visualization. Optional.
	Name string

	// Target is the work this node invokes. Required.
	Target Target

	// Inputs registers this node's reactive ports, in order, as observers on
	// the listed upstream nodes' output ports.
	Inputs []*Node

	// KwInputs registers the matching passive port as an observer on each
	// upstream node's output port.
	KwInputs map[string]*Node

	// Ports supplies explicit reactive ports (mapping, batch, ...). When set,
	// the count must match the target arity. Defaults to plain arg ports.
	Ports []*InputPort

	// Defaults seeds the cached reactive values. When set, the count must
	// match the target arity. Defaults to nils.
	Defaults []any

	// Value overrides the in-memory value cell, typically with a
	// store-backed one.
	Value Value

	// Logger overrides the logger injected by the graph. zap.NewNop when
	// neither is given.
	Logger *zap.Logger
}

// Edge describes one outgoing connection for the visualization collaborator.
type Edge struct {
	To      *Node
	Passive bool
}

// Node is a unit of computation: ordered reactive input ports with a cached
// value vector, passive keyword ports with a cached value map, one output
// port, one worker and a current value.
type Node struct {
	name   string
	logger *zap.Logger
	mc     *metrics.Collector

	target        Target
	reactivePorts []*InputPort
	passivePorts  map[string]*InputPort
	output        *OutputPort
	value         Value
	worker        Worker

	// stateMu guards the input caches. A node with several async upstreams
	// receives Notify from each upstream's result drainer, so cache writes
	// and the per-invocation snapshot must be atomic.
	stateMu        sync.Mutex
	reactiveValues []any
	passiveValues  map[string]any
}

// PoolOption configures a pooled worker.
type PoolOption func(*poolOptions)

type poolOptions struct {
	size int
}

// WithPoolSize sets the execution-worker count. Defaults to DefaultPoolSize.
func WithPoolSize(n int) PoolOption {
	return func(o *poolOptions) { o.size = n }
}

// NewNode builds a node with an inline synchronous worker.
func NewNode(cfg NodeConfig) (*Node, error) {
	n, err := buildNode(cfg, nil)
	if err != nil {
		return nil, err
	}
	n.worker = NewSyncWorker(n)
	return n, nil
}

// NewThreadNode builds a node with a goroutine-pool worker.
func NewThreadNode(cfg NodeConfig, opts ...PoolOption) (*Node, error) {
	return newPooledNode(cfg, GoroutineBacking{}, nil, opts)
}

// NewProcessNode builds a node whose pool is backed by worker subprocesses.
// The target must be registered with Register, and its inputs and results
// must survive a JSON round-trip.
func NewProcessNode(cfg NodeConfig, opts ...PoolOption) (*Node, error) {
	return newPooledNode(cfg, ProcessBacking{}, nil, opts)
}

func newPooledNode(cfg NodeConfig, backing Backing, mc *metrics.Collector, opts []PoolOption) (*Node, error) {
	var o poolOptions
	for _, opt := range opts {
		opt(&o)
	}
	n, err := buildNode(cfg, mc)
	if err != nil {
		return nil, err
	}
	n.worker = NewAsyncWorker(n, backing, o.size)
	return n, nil
}

// buildNode wires ports and seeds caches. All wiring errors surface here,
// at construction time.
func buildNode(cfg NodeConfig, mc *metrics.Collector) (*Node, error) {
	if !cfg.Target.valid() {
		return nil, ErrNoTarget
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &Node{
		name:   cfg.Name,
		logger: logger,
		mc:     mc,
		target: cfg.Target,
		output: NewOutputPort(),
		value:  cfg.Value,
	}
	if n.value == nil {
		n.value = newMemValue()
	}

	arity := cfg.Target.Arity()
	if cfg.Ports != nil {
		if len(cfg.Ports) != arity {
			return nil, fmt.Errorf("%w: node %q has %d ports for arity %d",
				ErrPortCountMismatch, cfg.Name, len(cfg.Ports), arity)
		}
		seen := make(map[int]bool, arity)
		for _, p := range cfg.Ports {
			if p.Passive() {
				return nil, fmt.Errorf("%w: node %q", ErrPassivePort, cfg.Name)
			}
			if p.idx < 0 || p.idx >= arity {
				return nil, fmt.Errorf("%w: node %q port index %d", ErrPortIndex, cfg.Name, p.idx)
			}
			if seen[p.idx] {
				return nil, fmt.Errorf("%w: node %q port index %d", ErrDuplicatePort, cfg.Name, p.idx)
			}
			seen[p.idx] = true
			p.connectTo(n)
		}
		n.reactivePorts = cfg.Ports
	} else {
		n.reactivePorts = make([]*InputPort, arity)
		for i := range n.reactivePorts {
			p := ArgPort(i)
			p.connectTo(n)
			n.reactivePorts[i] = p
		}
	}

	if cfg.Defaults != nil {
		if len(cfg.Defaults) != arity {
			return nil, fmt.Errorf("%w: node %q has %d defaults for arity %d",
				ErrDefaultsMismatch, cfg.Name, len(cfg.Defaults), arity)
		}
		n.reactiveValues = append([]any(nil), cfg.Defaults...)
	} else {
		n.reactiveValues = make([]any, arity)
	}

	n.passivePorts = make(map[string]*InputPort)
	n.passiveValues = make(map[string]any)
	for name, def := range cfg.Target.Defaults() {
		p := KwargPort(name)
		p.connectTo(n)
		n.passivePorts[name] = p
		n.passiveValues[name] = def
	}

	if len(cfg.Inputs) > arity {
		return nil, fmt.Errorf("%w: node %q has %d inputs for arity %d",
			ErrTooManyInputs, cfg.Name, len(cfg.Inputs), arity)
	}
	for i, upstream := range cfg.Inputs {
		if upstream == nil {
			continue
		}
		upstream.output.RegisterObserver(n.portForIndex(i))
	}
	for name, upstream := range cfg.KwInputs {
		p, ok := n.passivePorts[name]
		if !ok {
			return nil, fmt.Errorf("%w: node %q keyword %q", ErrUnknownKeyword, cfg.Name, name)
		}
		upstream.output.RegisterObserver(p)
	}

	return n, nil
}

// portForIndex returns the reactive port observing index i. With explicit
// ports the declared index wins over list position.
func (n *Node) portForIndex(i int) *InputPort {
	for _, p := range n.reactivePorts {
		if p.idx == i {
			return p
		}
	}
	return n.reactivePorts[i]
}

// Name returns the node's display name.
func (n *Node) Name() string { return n.name }

// Async reports whether the node's worker runs work on a pool.
func (n *Node) Async() bool { return n.worker.Async() }

// Worker exposes the node's worker.
func (n *Node) Worker() Worker { return n.worker }

// Output exposes the node's output port for manual wiring.
func (n *Node) Output() *OutputPort { return n.output }

// OutEdges lists the downstream connections registered on this node's output
// port. Read-only metadata for rendering.
func (n *Node) OutEdges() []Edge {
	var edges []Edge
	for _, o := range n.output.Observers() {
		p, ok := o.(*InputPort)
		if !ok || p.Node() == nil {
			continue
		}
		edges = append(edges, Edge{To: p.Node(), Passive: p.Passive()})
	}
	return edges
}

// GetValue returns the node's current value.
func (n *Node) GetValue() (any, error) { return n.value.Get() }

// SetValue overwrites the node's current value.
func (n *Node) SetValue(v any) error { return n.value.Set(v) }

// Trigger routes data onto reactive port 0 as if observed from upstream.
func (n *Node) Trigger(data any) error {
	return n.TriggerPort(0, data)
}

// TriggerPort routes data onto the reactive port at idx.
func (n *Node) TriggerPort(idx int, data any) error {
	if idx < 0 || idx >= len(n.reactivePorts) {
		return fmt.Errorf("%w: %d", ErrPortIndex, idx)
	}
	n.reactivePorts[idx].Notify(data)
	return nil
}

// TriggerEach routes each item onto the reactive port at idx, in order.
func (n *Node) TriggerEach(idx int, items []any) error {
	if idx < 0 || idx >= len(n.reactivePorts) {
		return fmt.Errorf("%w: %d", ErrPortIndex, idx)
	}
	p := n.reactivePorts[idx]
	for _, item := range items {
		p.Notify(item)
	}
	return nil
}

// Fire invokes the worker with the current cached state, updating nothing.
func (n *Node) Fire() {
	n.invoke()
}

// handleArg overwrites the cached reactive value at idx and fires the whole
// cached vector. Reactive inputs are last-value-wins, never
// barrier-synchronized: the first update on any single position already
// triggers an invocation using the cached or default values elsewhere. The
// write and the snapshot happen under one lock, so every invocation includes
// the value that triggered it.
func (n *Node) handleArg(idx int, data any) {
	n.stateMu.Lock()
	n.reactiveValues[idx] = data
	args, kwargs := n.snapshotLocked()
	n.stateMu.Unlock()
	n.submit(args, kwargs)
}

// handleKwarg overwrites the cached passive value. Mutate only, no trigger.
func (n *Node) handleKwarg(key string, data any) {
	n.stateMu.Lock()
	n.passiveValues[key] = data
	n.stateMu.Unlock()
}

// invoke submits the current cached state to the worker, updating nothing.
func (n *Node) invoke() {
	n.stateMu.Lock()
	args, kwargs := n.snapshotLocked()
	n.stateMu.Unlock()
	n.submit(args, kwargs)
}

// snapshotLocked copies the caches so in-flight work never observes later
// updates. Caller holds stateMu.
func (n *Node) snapshotLocked() ([]any, map[string]any) {
	args := append([]any(nil), n.reactiveValues...)
	var kwargs map[string]any
	if len(n.passiveValues) > 0 {
		kwargs = make(map[string]any, len(n.passiveValues))
		for k, v := range n.passiveValues {
			kwargs[k] = v
		}
	}
	return args, kwargs
}

// submit hands one invocation to the worker. Submission failures are logged
// and swallowed.
func (n *Node) submit(args []any, kwargs map[string]any) {
	if err := n.worker.Execute(args, kwargs); err != nil {
		n.logger.Error("failed to execute worker",
			zap.String("node", n.name),
			zap.Error(err),
		)
	}
}

// deliver performs the shared result step: set the node value, then fan out
// on the output port. A failed value write is logged but does not suppress
// fan-out; downstream delivery and persistence are independent concerns.
func (n *Node) deliver(result any) {
	if err := n.value.Set(result); err != nil {
		n.logger.Error("failed to set node value",
			zap.String("node", n.name),
			zap.Error(err),
		)
	}
	n.mc.RecordFanout(n.name)
	n.output.Notify(result)
}

// Start starts the node's worker.
func (n *Node) Start() error {
	return n.worker.Start()
}

// Stop stops the node's worker, draining pooled workers completely.
func (n *Node) Stop() {
	n.worker.Stop()
}

// Join flushes a pooled worker's queues. No-op for sync workers.
func (n *Node) Join(ctx context.Context) error {
	if aw, ok := n.worker.(*AsyncWorker); ok {
		return aw.Join(ctx)
	}
	return nil
}

// recordInvocation forwards to the metrics collector when one is attached.
func (n *Node) recordInvocation(worker, status string, d time.Duration) {
	n.mc.RecordInvocation(n.name, worker, status, d)
}

// recordQueueDepth forwards to the metrics collector when one is attached.
func (n *Node) recordQueueDepth(queueName string, depth int) {
	n.mc.SetQueueDepth(n.name, queueName, depth)
}
