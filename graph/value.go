package graph

import "sync"

// Value is a node's cached result cell. The default is a plain in-memory
// cell; a store-backed implementation may redirect Get/Set through an
// external persistent store while preserving identical semantics. Refresh
// loads the latest committed state for persistent backings and is a no-op in
// memory.
type Value interface {
	Refresh() error
	Get() (any, error)
	Set(v any) error
}

// memValue is the default in-memory cell. Reads and writes come from the
// single result-delivery goroutine (async) or the triggering caller (sync),
// but external callers may inspect the value concurrently, so it carries its
// own lock.
type memValue struct {
	mu sync.RWMutex
	v  any
}

func newMemValue() *memValue { return &memValue{} }

func (m *memValue) Refresh() error { return nil }

func (m *memValue) Get() (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v, nil
}

func (m *memValue) Set(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v = v
	return nil
}
