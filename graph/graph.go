package graph

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jsphon/node-process/internal/metrics"
)

// Graph is a named ordered collection of nodes with coordinated start and
// stop. The factory helpers inject the graph's logger and metrics collector
// into every node they build.
type Graph struct {
	name   string
	logger *zap.Logger
	mc     *metrics.Collector
	nodes  []*Node
	alive  atomic.Bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the graph logger injected into nodes. Defaults to
// zap.NewNop; pass a real logger at the outermost composition point.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// WithMetrics attaches a metrics collector, shared by all nodes.
func WithMetrics(mc *metrics.Collector) Option {
	return func(g *Graph) { g.mc = mc }
}

// New creates an empty graph.
func New(name string, opts ...Option) *Graph {
	g := &Graph{name: name}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Alive reports whether the graph is between Start and Stop.
func (g *Graph) Alive() bool { return g.alive.Load() }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// AddNode builds a sync-worker node and appends it to the graph.
func (g *Graph) AddNode(cfg NodeConfig) (*Node, error) {
	n, err := buildNode(g.inject(cfg), g.mc)
	if err != nil {
		return nil, err
	}
	n.worker = NewSyncWorker(n)
	g.nodes = append(g.nodes, n)
	return n, nil
}

// AddThreadNode builds a goroutine-pool node and appends it to the graph.
func (g *Graph) AddThreadNode(cfg NodeConfig, opts ...PoolOption) (*Node, error) {
	n, err := newPooledNode(g.inject(cfg), GoroutineBacking{}, g.mc, opts)
	if err != nil {
		return nil, err
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// AddProcessNode builds a subprocess-pool node and appends it to the graph.
func (g *Graph) AddProcessNode(cfg NodeConfig, opts ...PoolOption) (*Node, error) {
	n, err := newPooledNode(g.inject(cfg), ProcessBacking{}, g.mc, opts)
	if err != nil {
		return nil, err
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// inject fills node defaults from the graph.
func (g *Graph) inject(cfg NodeConfig) NodeConfig {
	if cfg.Logger == nil {
		cfg.Logger = g.logger
	}
	return cfg
}

// Start starts every node's worker in insertion order, then marks the graph
// alive. On a start failure the already-started nodes are stopped in
// reverse order and the error is returned.
func (g *Graph) Start() error {
	g.logger.Info("graph starting", zap.String("graph", g.name))
	for i, n := range g.nodes {
		if err := n.Start(); err != nil {
			g.logger.Error("graph start failed",
				zap.String("graph", g.name),
				zap.String("node", n.name),
				zap.Error(err),
			)
			for j := i - 1; j >= 0; j-- {
				g.nodes[j].Stop()
			}
			return err
		}
	}
	g.alive.Store(true)
	return nil
}

// Stop marks the graph not alive, then stops every async-worker node in
// insertion order, then every sync-worker node. Draining pooled producers
// before inline consumers means a still-draining async producer never emits
// into an already-torn-down synchronous consumer.
func (g *Graph) Stop() {
	g.logger.Info("graph received stop signal", zap.String("graph", g.name))
	g.alive.Store(false)
	for _, n := range g.nodes {
		if n.Async() {
			n.Stop()
		}
	}
	for _, n := range g.nodes {
		if !n.Async() {
			n.Stop()
		}
	}
}

// Join flushes every async-worker node's queues without shutting anything
// down. Returns the first context error observed.
func (g *Graph) Join(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, n := range g.nodes {
		if !n.Async() {
			continue
		}
		eg.Go(func() error { return n.Join(ctx) })
	}
	return eg.Wait()
}
