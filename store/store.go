// Package store provides the pluggable persistent value store behind a node:
// a keyed store interface with memory, file, Redis and SQLite backends, and
// a per-key binding that satisfies the node value contract.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound    = errors.New("not found")
	ErrStoreClosed = errors.New("store is closed")
)

// Type selects a storage backend.
type Type string

const (
	// TypeMemory keeps values in process memory. Development and testing.
	TypeMemory Type = "memory"
	// TypeFile persists one JSON document per key. Single-node deployments.
	TypeFile Type = "file"
	// TypeRedis persists JSON-encoded values in Redis. Distributed
	// deployments.
	TypeRedis Type = "redis"
	// TypeSQLite persists one row per key in an embedded SQLite database.
	TypeSQLite Type = "sqlite"
)

// Store is a keyed value store. Values must be JSON-encodable for every
// backend except memory.
type Store interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
	PoolSize  int    `yaml:"pool_size" json:"pool_size"`
}

// Config selects and configures a backend.
type Config struct {
	Type Type `yaml:"type" json:"type"`

	// Dir is the base directory for the file backend.
	Dir string `yaml:"dir" json:"dir"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path" json:"path"`

	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// DefaultConfig returns the development default: an in-memory store.
func DefaultConfig() Config {
	return Config{
		Type: TypeMemory,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "node-process:",
			PoolSize:  10,
		},
	}
}

// New builds the backend selected by config.
func New(config Config) (Store, error) {
	switch config.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeFile:
		return NewFileStore(config.Dir)
	case TypeRedis:
		return NewRedisStore(config.Redis)
	case TypeSQLite:
		return NewSQLiteStore(config.Path)
	default:
		return nil, fmt.Errorf("unknown store type %q", config.Type)
	}
}
