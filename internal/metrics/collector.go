// Package metrics provides internal Prometheus instrumentation for node
// invocations and worker queues.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records per-node execution metrics. A nil *Collector is valid
// and records nothing, so call sites never need a guard.
type Collector struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	fanout      *prometheus.CounterVec
	queueDepth  *prometheus.GaugeVec
}

// NewCollector registers the collector's metrics on reg under namespace.
// Pass prometheus.DefaultRegisterer outside tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_invocations_total",
				Help:      "Work target invocations by node, worker kind and status.",
			},
			[]string{"node", "worker", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_invocation_duration_seconds",
				Help:      "Work target invocation latency by node.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		fanout: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_fanout_total",
				Help:      "Results fanned out on node output ports.",
			},
			[]string{"node"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_queue_depth",
				Help:      "Pending items on pooled worker queues.",
			},
			[]string{"node", "queue"},
		),
	}
}

// RecordInvocation counts one invocation attempt and observes its latency.
func (c *Collector) RecordInvocation(node, worker, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.invocations.WithLabelValues(node, worker, status).Inc()
	if status == "ok" || status == "error" {
		c.duration.WithLabelValues(node).Observe(d.Seconds())
	}
}

// RecordFanout counts one result delivered to a node's output port.
func (c *Collector) RecordFanout(node string) {
	if c == nil {
		return
	}
	c.fanout.WithLabelValues(node).Inc()
}

// SetQueueDepth records the current depth of a pooled worker queue.
func (c *Collector) SetQueueDepth(node, queue string, depth int) {
	if c == nil {
		return
	}
	c.queueDepth.WithLabelValues(node, queue).Set(float64(depth))
}
