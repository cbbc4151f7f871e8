package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Value binds one key in a Store to a node-compatible value cell: Refresh
// loads the latest committed state into the cache, Get returns the cache,
// Set writes through. It satisfies the node value contract of the graph
// package.
type Value struct {
	store Store
	key   string

	mu     sync.RWMutex
	cached any
}

// NewValue binds key in s. An empty key gets a generated temporary
// identifier; pass the node's name to share state across restarts.
func NewValue(s Store, key string) *Value {
	if key == "" {
		key = "value-" + uuid.NewString()
	}
	return &Value{store: s, key: key}
}

// Key returns the bound storage key.
func (v *Value) Key() string { return v.key }

// Refresh loads the latest committed state into the cache. A missing key
// leaves the cache nil.
func (v *Value) Refresh() error {
	stored, err := v.store.Get(context.Background(), v.key)
	if errors.Is(err, ErrNotFound) {
		stored = nil
	} else if err != nil {
		return err
	}
	v.mu.Lock()
	v.cached = stored
	v.mu.Unlock()
	return nil
}

// Get returns the cached value.
func (v *Value) Get() (any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cached, nil
}

// Set writes through to the store and updates the cache.
func (v *Value) Set(x any) error {
	if err := v.store.Set(context.Background(), v.key, x); err != nil {
		return err
	}
	v.mu.Lock()
	v.cached = x
	v.mu.Unlock()
	return nil
}
