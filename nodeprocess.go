// Package nodeprocess provides a top-level convenience entry point for
// building reactive dataflow graphs with minimal boilerplate.
//
// Usage:
//
//	import nodeprocess "github.com/jsphon/node-process"
//
//	g := nodeprocess.New("pipeline")
//	src, _ := g.AddThreadNode(nodeprocess.NodeConfig{Name: "fetch", Target: fetch})
//	_, _ = g.AddNode(nodeprocess.NodeConfig{Name: "sum", Target: sum, Inputs: []*nodeprocess.Node{src}})
//	g.Start()
//	defer g.Stop()
//
// This is a thin wrapper around the graph package; use it when you prefer
// the shorter import path. FromConfig composes a graph from a config.Config,
// wiring the logger, the Prometheus collector and the store-backed defaults
// at the one place configuration is allowed to be ambient.
package nodeprocess

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsphon/node-process/config"
	"github.com/jsphon/node-process/graph"
	"github.com/jsphon/node-process/internal/metrics"
	"github.com/jsphon/node-process/store"
)

// Re-exported core types so callers never need to import graph/ directly.
type (
	Graph      = graph.Graph
	Node       = graph.Node
	NodeConfig = graph.NodeConfig
	Target     = graph.Target
	Work       = graph.Work
	Value      = graph.Value
	Worker     = graph.Worker
)

// Re-exported constructors and options.
var (
	New              = graph.New
	WithLogger       = graph.WithLogger
	WithPoolSize     = graph.WithPoolSize
	NewTarget        = graph.NewTarget
	NewFactoryTarget = graph.NewFactoryTarget
	Func             = graph.Func
	WithDefault      = graph.WithDefault
	Register         = graph.Register
	ArgPort          = graph.ArgPort
	MappingPort      = graph.MappingPort
	BatchPort        = graph.BatchPort
	WorkerMain       = graph.WorkerMain
)

// Runtime is a composed graph plus the shared store it was built with.
type Runtime struct {
	Graph *graph.Graph
	Store store.Store
}

// FromConfig builds a runtime from configuration: logger from cfg.Log,
// optional Prometheus collector from cfg.Metrics, and the configured store
// for PersistentValue bindings.
func FromConfig(name string, cfg config.Config) (*Runtime, error) {
	logger, err := cfg.BuildLogger()
	if err != nil {
		return nil, err
	}

	opts := []graph.Option{graph.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		mc := metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		opts = append(opts, graph.WithMetrics(mc))
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Graph: graph.New(name, opts...),
		Store: st,
	}, nil
}

// PersistentValue binds key in the runtime store and loads its committed
// state, ready to pass as NodeConfig.Value. An empty key gets a generated
// identifier; pass the node's name to share state across restarts.
func (r *Runtime) PersistentValue(key string) (*store.Value, error) {
	v := store.NewValue(r.Store, key)
	if err := v.Refresh(); err != nil {
		return nil, err
	}
	return v, nil
}

// Close releases the runtime's store.
func (r *Runtime) Close() error {
	return r.Store.Close()
}
