// Package graph implements a reactive dataflow execution graph.
//
// Processing units (nodes) are wired into directed graphs where data flows
// producer-to-consumer through typed ports. A node owns ordered reactive
// input ports, passive keyword input ports, one output port, a cached value
// and one worker. Updating any reactive port triggers an invocation of the
// node's work target with the entire cached input state; updating a passive
// port only refreshes the cache. Results are written to the node value and
// fanned out synchronously to every downstream observer.
//
// Work executes either inline on the triggering goroutine (sync worker) or
// on a pool of execution workers backed by goroutines or worker subprocesses
// (async worker). Async workers drain with a poison-pill protocol that
// guarantees no produced result is lost during shutdown.
package graph
